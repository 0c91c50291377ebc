package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Enrollment Sync API",
        "description": "Reconciles enrollment status trails with Moodle activity",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": ["http"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Operator login"},
        {"name": "Enrollments", "description": "On-demand reconciliation of single enrollments"},
        {"name": "Sync Runs", "description": "Batch reconciliation runs and their reports"},
        {"name": "Observability", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness check of Postgres and Redis",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Observability"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "Prometheus exposition"}}
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate operator",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Access token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current operator",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Operator profile", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/enrollments/{id}/sync": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Reconcile an enrollment with Moodle",
                "description": "Admin only. The HTTP status follows the outcome code.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "SUCCESS", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}},
                    "400": {"description": "BAD_REQUEST", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}},
                    "404": {"description": "NOT_ENROLLED, NOT_FOUND_REMOTE or unknown enrollment", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}},
                    "409": {"description": "Enrollment is being reconciled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "UPSTREAM_UNAVAILABLE, UPSTREAM_MALFORMED or AMBIGUOUS_REMOTE", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}}
                }
            }
        },
        "/api/v1/students/{cpf}/enrollment-status": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Reconcile a student's enrollment in a course class",
                "description": "Allowed for admins and for administrators of the course class.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "cpf", "type": "string", "required": true},
                    {"in": "query", "name": "course_id", "type": "string", "required": true, "description": "Course class ID"}
                ],
                "responses": {
                    "200": {"description": "SUCCESS", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}},
                    "400": {"description": "Invalid course class or CPF", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not enrolled", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}},
                    "502": {"description": "Moodle failure", "schema": {"$ref": "#/definitions/OutcomeEnvelope"}}
                }
            }
        },
        "/api/v1/sync/metrics": {
            "get": {
                "tags": ["Observability"],
                "summary": "Reconciliation metrics snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Snapshot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/sync/runs": {
            "post": {
                "tags": ["Sync Runs"],
                "summary": "Queue a batch reconciliation run",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": false, "schema": {"$ref": "#/definitions/StartSyncRunRequest"}}
                ],
                "responses": {
                    "202": {"description": "Run queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sync/runs/{id}": {
            "get": {
                "tags": ["Sync Runs"],
                "summary": "Batch run summary",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sync/runs/{id}/results": {
            "get": {
                "tags": ["Sync Runs"],
                "summary": "Per-enrollment results of a run",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "page_size", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Results", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sync/runs/{id}/report": {
            "get": {
                "tags": ["Sync Runs"],
                "summary": "Download a run report",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Report attachment", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "StartSyncRunRequest": {
            "type": "object",
            "properties": {
                "course_class_id": {"type": "string", "format": "uuid"}
            }
        },
        "Outcome": {
            "type": "object",
            "properties": {
                "status_code": {
                    "type": "string",
                    "enum": ["SUCCESS", "BAD_REQUEST", "UPSTREAM_UNAVAILABLE", "UPSTREAM_MALFORMED", "NOT_FOUND_REMOTE", "AMBIGUOUS_REMOTE", "NOT_ENROLLED"]
                },
                "messages": {"type": "array", "items": {"type": "string"}},
                "last_access": {"type": "integer"},
                "progress": {"type": "number"}
            }
        },
        "OutcomeEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/Outcome"},
                "meta": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
