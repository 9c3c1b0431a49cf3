package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Trust Enforcement API",
        "description": "Report intake, moderation queue and sanction enforcement.",
        "version": "1.0.0"
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
        {"name": "Reports", "description": "Abuse report intake"},
        {"name": "Moderation", "description": "Moderator work queue"},
        {"name": "Sanctions", "description": "Warnings and suspensions"},
        {"name": "Moderation Log", "description": "Append-only audit trail"}
    ],
    "paths": {
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Report a piece of content or a user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SubmitReportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Target not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reported", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/moderation/reports": {
            "get": {
                "tags": ["Moderation"],
                "summary": "List the moderation queue",
                "description": "Ordered by priority (URGENT first) then oldest first. Defaults to open reports.",
                "parameters": [
                    {"in": "query", "name": "status", "type": "string", "description": "Comma separated statuses"},
                    {"in": "query", "name": "priority", "type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "URGENT"]},
                    {"in": "query", "name": "targetType", "type": "string", "enum": ["POST", "COMMENT", "MESSAGE", "USER", "CANDIDATE"]},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "pageSize", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/moderation/reports/{id}": {
            "get": {
                "tags": ["Moderation"],
                "summary": "Get a report",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Report not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/moderation/reports/{id}/claim": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Claim a pending report for review",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Claimed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No longer pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/moderation/reports/{id}/resolve": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Resolve a report with a moderation action",
                "description": "Resolving an already resolved report returns 200 with meta.alreadyResolved and no further side effects.",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ResolveReportRequest"}}
                ],
                "responses": {
                    "200": {"description": "Resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Report not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/moderation/suspensions/{id}/lift": {
            "post": {
                "tags": ["Sanctions"],
                "summary": "Lift a single suspension",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Lifted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Suspension not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/moderation/users/{id}/lift-suspensions": {
            "post": {
                "tags": ["Sanctions"],
                "summary": "Lift every active suspension of a user",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Lifted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/moderation/users/{id}/sanctions": {
            "get": {
                "tags": ["Sanctions"],
                "summary": "Sanction history of a user",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/moderation/stats": {
            "get": {
                "tags": ["Moderation"],
                "summary": "Moderation queue statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/moderation/logs": {
            "get": {
                "tags": ["Moderation Log"],
                "summary": "List moderation log entries",
                "parameters": [
                    {"in": "query", "name": "moderatorId", "type": "string"},
                    {"in": "query", "name": "targetType", "type": "string"},
                    {"in": "query", "name": "targetId", "type": "string"},
                    {"in": "query", "name": "action", "type": "string"},
                    {"in": "query", "name": "since", "type": "string", "format": "date-time"},
                    {"in": "query", "name": "until", "type": "string", "format": "date-time"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "pageSize", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/moderation/logs/export": {
            "get": {
                "tags": ["Moderation Log"],
                "summary": "Export the moderation log (admins only)",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"], "default": "csv"},
                    {"in": "query", "name": "since", "type": "string", "format": "date-time"},
                    {"in": "query", "name": "until", "type": "string", "format": "date-time"}
                ],
                "responses": {
                    "200": {"description": "Export document", "schema": {"type": "file"}},
                    "403": {"description": "Admins only", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SubmitReportRequest": {
            "type": "object",
            "required": ["targetType", "targetId", "reasonCode"],
            "properties": {
                "targetType": {"type": "string", "enum": ["POST", "COMMENT", "MESSAGE", "USER", "CANDIDATE"]},
                "targetId": {"type": "string"},
                "reasonCode": {"type": "string", "enum": ["SPAM", "HARASSMENT", "HATE_SPEECH", "THREAT", "VIOLENCE", "SEXUAL_CONTENT", "MISINFORMATION", "IMPERSONATION", "SELF_HARM", "ILLEGAL_CONTENT", "OTHER"]},
                "description": {"type": "string", "maxLength": 2000}
            }
        },
        "ResolveReportRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["NO_ACTION", "CONTENT_HIDDEN", "CONTENT_DELETED", "USER_WARNED", "USER_SUSPENDED", "USER_BANNED"]},
                "notes": {"type": "string"},
                "durationHours": {"type": "integer", "description": "Only valid with USER_SUSPENDED"}
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
