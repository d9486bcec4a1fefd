package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Concept Review API",
        "description": "Reviewer rankings, student boards and program chair feedback for concept titles",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Reviews", "description": "Reviewer scores, recommendations and ranks"},
        {"name": "Boards", "description": "Per-student concept title boards"},
        {"name": "Feedback", "description": "Program chair feedback and conversation threads"}
    ],
    "paths": {
        "/assignments/{assignmentId}/review": {
            "put": {
                "tags": ["Reviews"],
                "summary": "Submit or update the caller's review of one assignment",
                "description": "Omitted fields keep their stored value. clear_rank removes a stored rank.",
                "parameters": [
                    {"name": "assignmentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stored review", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the assignment's reviewer", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown assignment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "RANK_CONFLICT", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/ranks": {
            "put": {
                "tags": ["Reviews"],
                "summary": "Re-rank all of the caller's assignments for a student",
                "description": "Assignments missing from ranks have their rank cleared. The batch applies fully or not at all.",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkRankRequest"}}
                ],
                "responses": {
                    "200": {"description": "Number of assignments touched", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rank out of range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "DUPLICATE_RANK or RANK_CONFLICT", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/board": {
            "get": {
                "tags": ["Boards"],
                "summary": "Get a student's concept title board",
                "description": "Status is final only when every assignment of the student carries a rank.",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Board", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown student", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/final-pick": {
            "get": {
                "tags": ["Boards"],
                "summary": "Confirm a student's final pick",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Top board entry", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Board still preliminary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/board/export": {
            "get": {
                "tags": ["Boards"],
                "summary": "Export a student's board",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "required": false, "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Board file", "schema": {"type": "file"}},
                    "400": {"description": "Unknown format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{assignmentId}/chair-feedback": {
            "post": {
                "tags": ["Feedback"],
                "summary": "Attach program chair feedback to a review",
                "parameters": [
                    {"name": "assignmentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChairFeedbackRequest"}}
                ],
                "responses": {
                    "200": {"description": "Annotated review and notified users", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No anchor review", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "NOT_SUBMITTED_YET", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{assignmentId}/messages": {
            "get": {
                "tags": ["Feedback"],
                "summary": "List an assignment's conversation, oldest first",
                "parameters": [
                    {"name": "assignmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Messages", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not a participant", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown assignment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Feedback"],
                "summary": "Post a message to an assignment's conversation",
                "parameters": [
                    {"name": "assignmentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PostMessageRequest"}}
                ],
                "responses": {
                    "201": {"description": "Stored message", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not a participant", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SubmitReviewRequest": {
            "type": "object",
            "properties": {
                "score": {"type": "integer", "minimum": 1, "maximum": 5},
                "recommendation": {"type": "string", "enum": ["pursue", "revise", "reject"]},
                "rank_order": {"type": "integer", "minimum": 1, "maximum": 3},
                "clear_rank": {"type": "boolean"},
                "comments": {"type": "string"},
                "mentoring_interest": {"type": "boolean"}
            }
        },
        "BulkRankRequest": {
            "type": "object",
            "properties": {
                "ranks": {"type": "object", "additionalProperties": {"type": "integer", "minimum": 1, "maximum": 3}}
            }
        },
        "ChairFeedbackRequest": {
            "type": "object",
            "required": ["target_kind"],
            "properties": {
                "target_kind": {"type": "string", "enum": ["student", "mentor"]},
                "message": {"type": "string"}
            }
        },
        "PostMessageRequest": {
            "type": "object",
            "required": ["body"],
            "properties": {
                "body": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
