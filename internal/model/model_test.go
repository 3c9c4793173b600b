package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocument_OwnedBy(t *testing.T) {
	doc := &Document{ID: "doc1", OwnerID: "alice"}

	assert.True(t, doc.OwnedBy("alice"))
	assert.False(t, doc.OwnedBy("bob"))
	assert.False(t, doc.OwnedBy(""))

	var missing *Document
	assert.False(t, missing.OwnedBy("alice"))
}

func TestAccessGrant_Active(t *testing.T) {
	now := time.Date(2024, 11, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		grant *AccessGrant
		want  bool
	}{
		{name: "active within window", grant: &AccessGrant{Status: GrantActive, ExpiresAt: now.Add(time.Second)}, want: true},
		{name: "active but elapsed", grant: &AccessGrant{Status: GrantActive, ExpiresAt: now}, want: false},
		{name: "revoked", grant: &AccessGrant{Status: GrantRevoked, ExpiresAt: now.Add(time.Hour)}, want: false},
		{name: "nil", grant: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.grant.Active(now))
		})
	}
}
