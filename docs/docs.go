// Package docs holds the OpenAPI template served under /swagger. It is kept
// by hand in the shape swag init emits, so edit it alongside the handler
// annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/documents": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "List own documents",
                "parameters": [
                    {"type": "integer", "default": 10, "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "page offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.DocumentListResult"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Upload a document",
                "parameters": [
                    {"type": "file", "description": "document", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Document"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/documents/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Get document metadata",
                "parameters": [
                    {"type": "string", "description": "document id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Document"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"],
                "summary": "Revoke a document",
                "parameters": [
                    {"type": "string", "description": "document id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/grant": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["grants"],
                "summary": "Request an access grant",
                "parameters": [
                    {"description": "document to grant", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.grantRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.grantResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/grant/{documentId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["grants"],
                "summary": "Grant status",
                "parameters": [
                    {"type": "string", "description": "document id", "name": "documentId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.GrantStatusResult"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/grant/{documentId}/artifact": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["image/png"],
                "tags": ["grants"],
                "summary": "Grant artifact image",
                "parameters": [
                    {"type": "string", "description": "document id", "name": "documentId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/print/{documentId}": {
            "get": {
                "produces": ["text/html"],
                "tags": ["public"],
                "summary": "Printable view of a granted document",
                "parameters": [
                    {"type": "string", "description": "document id", "name": "documentId", "in": "path", "required": true},
                    {"type": "string", "description": "retrieval token", "name": "token", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "html", "schema": {"type": "string"}},
                    "302": {"description": "Found"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/retrieve/{documentId}": {
            "get": {
                "tags": ["public"],
                "summary": "Retrieve a granted document",
                "parameters": [
                    {"type": "string", "description": "document id", "name": "documentId", "in": "path", "required": true},
                    {"type": "string", "description": "retrieval token", "name": "token", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        }
    },
    "definitions": {
        "expiry.Snapshot": {
            "type": "object",
            "properties": {
                "display": {"type": "string"},
                "remainingSeconds": {"type": "integer"},
                "state": {"type": "string"}
            }
        },
        "handler.errorEnvelope": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/handler.errorEnvelope"},
                "request_id": {"type": "string"}
            }
        },
        "handler.grantRequest": {
            "type": "object",
            "properties": {
                "documentId": {"type": "string"}
            }
        },
        "handler.grantResponse": {
            "type": "object",
            "properties": {
                "artifactRef": {"type": "string"},
                "documentId": {"type": "string"},
                "expiresAt": {"type": "string"},
                "grantId": {"type": "string"},
                "issuedAt": {"type": "string"},
                "qrCode": {"type": "string"},
                "retrievalRoute": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "model.AccessGrant": {
            "type": "object",
            "properties": {
                "artifact_ref": {"type": "string"},
                "document_id": {"type": "string"},
                "expires_at": {"type": "string"},
                "id": {"type": "string"},
                "issued_at": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "model.Document": {
            "type": "object",
            "properties": {
                "content_type": {"type": "string"},
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "original_name": {"type": "string"},
                "owner_id": {"type": "string"},
                "size": {"type": "integer"}
            }
        },
        "service.DocumentListResult": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.Document"}},
                "total": {"type": "integer"}
            }
        },
        "service.GrantStatusResult": {
            "type": "object",
            "properties": {
                "countdown": {"$ref": "#/definitions/expiry.Snapshot"},
                "grant": {"$ref": "#/definitions/model.AccessGrant"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Kawach API",
	Description:      "Time-boxed document access through scannable grants.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
