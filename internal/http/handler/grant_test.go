package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kawach/internal/expiry"
	"kawach/internal/model"
	"kawach/internal/service"
	serviceMocks "kawach/internal/service/mocks"
	"kawach/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRequestGrant(t *testing.T) {
	mockSvc := new(serviceMocks.MockGrantService)
	app := fiber.New()
	app.Post("/grant", asUser("alice"), RequestGrant(mockSvc))

	t.Run("issued", func(t *testing.T) {
		id := uuid.NewString()
		issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		mockSvc.On("RequestGrant", mock.Anything, id, "alice").Return(&service.GrantResult{
			GrantID:        "g1",
			DocumentID:     id,
			ArtifactRef:    "artifacts/" + id + "/g1.png",
			RetrievalRoute: "https://kawach.test/retrieve/" + id + "?token=t",
			QRCode:         "data:image/png;base64,AAAA",
			IssuedAt:       issued,
			ExpiresAt:      issued.Add(40 * time.Second),
		}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/grant", `{"documentId":"`+id+`"}`))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "artifacts/"+id+"/g1.png", body["artifactRef"])
		assert.Equal(t, "https://kawach.test/retrieve/"+id+"?token=t", body["retrievalRoute"])
		assert.Equal(t, "data:image/png;base64,AAAA", body["qrCode"])
		assert.Equal(t, "2026-01-02T03:04:05Z", body["issuedAt"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/grant", `{"documentId":`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/grant", `{"documentId":"nope"}`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})

	errorCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unknown document", service.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"other owner", service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"encoding failed", fmt.Errorf("%w: payload too large", service.ErrEncodingFailed), http.StatusUnprocessableEntity, "ENCODING_FAILED"},
		{"store down", fmt.Errorf("%w: store artifact: refused", service.ErrUpstreamUnavailable), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			id := uuid.NewString()
			mockSvc.On("RequestGrant", mock.Anything, id, "alice").Return(nil, tc.err).Once()

			resp, _ := app.Test(jsonRequest(http.MethodPost, "/grant", `{"documentId":"`+id+`"}`))

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Equal(t, tc.wantCode, decodeError(t, resp).Error.Code)
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestGrantStatus(t *testing.T) {
	mockSvc := new(serviceMocks.MockGrantService)
	app := fiber.New()
	app.Get("/grant/:documentId", asUser("alice"), GrantStatus(mockSvc))

	id := uuid.NewString()
	mockSvc.On("Status", mock.Anything, id, "alice").Return(&service.GrantStatusResult{
		Grant:     model.AccessGrant{ID: "g1", DocumentID: id, Status: model.GrantActive},
		Countdown: expiry.Snapshot{State: expiry.Running, RemainingSeconds: 75, Display: "1:15"},
	}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/grant/"+id, nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Grant     model.AccessGrant `json:"grant"`
		Countdown struct {
			State            string `json:"state"`
			RemainingSeconds int    `json:"remainingSeconds"`
			Display          string `json:"display"`
		} `json:"countdown"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, model.GrantActive, body.Grant.Status)
	assert.Equal(t, "RUNNING", body.Countdown.State)
	assert.Equal(t, 75, body.Countdown.RemainingSeconds)
	assert.Equal(t, "1:15", body.Countdown.Display)
	mockSvc.AssertExpectations(t)
}

func TestGrantArtifact(t *testing.T) {
	mockSvc := new(serviceMocks.MockGrantService)
	app := fiber.New()
	app.Get("/grant/:documentId/artifact", asUser("alice"), GrantArtifact(mockSvc))

	t.Run("streams png", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Artifact", mock.Anything, id, "alice").
			Return(io.NopCloser(strings.NewReader("\x89PNG")), storage.ObjectInfo{Size: 4, ContentType: "image/png"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/grant/"+id+"/artifact", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "\x89PNG", string(body))
	})

	t.Run("no grant", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Artifact", mock.Anything, id, "alice").Return(nil, storage.ObjectInfo{}, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/grant/"+id+"/artifact", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
