package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academy Scheduler API",
        "description": "Automatic and manual lesson scheduling for academy class groups",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Scheduler", "description": "Automatic lesson generation"},
        {"name": "Lessons", "description": "Manual booking and lesson maintenance"},
        {"name": "Observability", "description": "Probes and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency did not answer"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Observability"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Prometheus exposition format"}
                }
            }
        },
        "/api/v1/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Scheduler metrics summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/class-groups/{id}/lessons/generate": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Generate lessons for a class group",
                "description": "Places lessons day by day from startDate until every module reaches its planned hours. With async=true the run is queued and polled through /generation-runs/{id}.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Class group ID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateLessonsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Run report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Run queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A run is already in progress for the class group", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Module not configured, or day limit reached (report in data)", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/generation-runs/{id}": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Asynchronous generation run status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Run ID"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/lessons": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Book a lesson manually",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLessonRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or duration out of range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown module assignment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Room, trainer or class group already booked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Not configured, trainer unavailable or budget exceeded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/lessons/{id}": {
            "delete": {
                "tags": ["Lessons"],
                "summary": "Delete a lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Lesson ID"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/class-groups/{id}/lessons": {
            "get": {
                "tags": ["Lessons"],
                "summary": "List lessons of a class group",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Class group ID"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Lessons"],
                "summary": "Delete every lesson of a class group",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Class group ID"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateLessonsRequest": {
            "type": "object",
            "required": ["startDate", "regime"],
            "properties": {
                "startDate": {"type": "string", "format": "date", "example": "2025-01-06"},
                "regime": {"type": "string", "enum": ["day", "evening"]},
                "async": {"type": "boolean"}
            }
        },
        "CreateLessonRequest": {
            "type": "object",
            "required": ["moduleAssignmentId", "start", "end"],
            "properties": {
                "moduleAssignmentId": {"type": "string"},
                "start": {"type": "string", "format": "date-time"},
                "end": {"type": "string", "format": "date-time"}
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
