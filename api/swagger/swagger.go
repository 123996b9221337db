package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Rehab Planner API",
        "description": "Therapist-to-patient scheduling for a rehabilitation department",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Planner account session"},
        {"name": "Planner", "description": "Constraint matrices, scheduling runs and exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate the planner account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planner/matrices": {
            "post": {
                "tags": ["Planner"],
                "summary": "Build constraint matrices for a target date",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BuildMatricesRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Malformed constraint input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planner/runs": {
            "get": {
                "tags": ["Planner"],
                "summary": "List persisted runs for one date",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Persistence disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planner/runs/{id}": {
            "get": {
                "tags": ["Planner"],
                "summary": "Get one persisted run with its assignment rows",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planner/runs/{id}/matrices": {
            "get": {
                "tags": ["Planner"],
                "summary": "Get a run's constraint matrices",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Planner"],
                "summary": "Flip one cell of a run's matrices",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PatchMatrixRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planner/runs/{id}/schedule": {
            "post": {
                "tags": ["Planner"],
                "summary": "Run the assigner over a stored run's matrices",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planner/schedule": {
            "post": {
                "tags": ["Planner"],
                "summary": "Run the assigner over caller-supplied matrices",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planner/validate": {
            "post": {
                "tags": ["Planner"],
                "summary": "Re-check a schedule against matrices",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ValidateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planner/runs/{id}/export": {
            "get": {
                "tags": ["Planner"],
                "summary": "Export a run's schedule as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "view", "in": "query", "type": "string", "enum": ["list", "patients", "therapists"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planner/exports/download": {
            "get": {
                "tags": ["Planner"],
                "summary": "Download an exported schedule file",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File contents"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "BuildMatricesRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2026-04-04"},
                "therapists": {"type": "array", "items": {"$ref": "#/definitions/TherapistInput"}},
                "patients": {"type": "array", "items": {"$ref": "#/definitions/PatientInput"}},
                "shifts": {"type": "array", "items": {"$ref": "#/definitions/ShiftRowInput"}}
            },
            "required": ["date", "therapists", "patients", "shifts"]
        },
        "TherapistInput": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "gender": {"type": "string"},
                "ward": {"type": "string", "example": "3階東病棟"},
                "exclusive": {"type": "string", "example": "〇"}
            },
            "required": ["id", "name", "ward"]
        },
        "PatientInput": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "ward": {"type": "string"},
                "primary_therapist": {"type": "string"},
                "therapy_category": {"type": "string"},
                "bathing_time": {"type": "string", "example": "金・14:30"},
                "excretion_time": {"type": "string"},
                "reserved_time": {"type": "string", "example": "10:00-11:00"}
            },
            "required": ["id", "ward"]
        },
        "ShiftRowInput": {
            "type": "object",
            "properties": {
                "therapist_name": {"type": "string"},
                "codes": {"type": "object", "additionalProperties": {"type": "string"}}
            },
            "required": ["therapist_name"]
        },
        "PatchMatrixRequest": {
            "type": "object",
            "properties": {
                "matrix": {"type": "string", "enum": ["patient_availability", "therapist_availability", "compatibility"]},
                "row": {"type": "integer"},
                "col": {"type": "integer"},
                "value": {"type": "integer"}
            },
            "required": ["matrix", "row", "col", "value"]
        },
        "ScheduleRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "matrices": {"$ref": "#/definitions/ConstraintMatrices"}
            },
            "required": ["matrices"]
        },
        "ValidateRequest": {
            "type": "object",
            "properties": {
                "schedule": {"type": "object"},
                "matrices": {"$ref": "#/definitions/ConstraintMatrices"}
            },
            "required": ["schedule", "matrices"]
        },
        "ConstraintMatrices": {
            "type": "object",
            "properties": {
                "patient_availability": {"type": "array", "items": {"type": "array", "items": {"type": "integer"}}},
                "therapist_availability": {"type": "array", "items": {"type": "array", "items": {"type": "integer"}}},
                "compatibility": {"type": "array", "items": {"type": "array", "items": {"type": "integer"}}},
                "requirements": {"type": "array", "items": {"type": "integer"}},
                "patient_ids": {"type": "array", "items": {"type": "string"}},
                "therapist_ids": {"type": "array", "items": {"type": "string"}},
                "timeslots": {"type": "array", "items": {"type": "string"}}
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
