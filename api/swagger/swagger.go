// Package swagger holds the generated OpenAPI document served at /docs.
// Regenerate with: swag init -g cmd/api-gateway/main.go -o api/swagger
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Authenticate and receive a token pair",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["auth"],
                "summary": "Rotate a refresh token",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/documents": {
            "get": {
                "tags": ["documents"],
                "summary": "List archive documents",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["documents"],
                "summary": "Register a new archive document",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/documents/{id}": {
            "get": {
                "tags": ["documents"],
                "summary": "Fetch one archive document",
                "responses": {"200": {"description": "OK"}}
            },
            "patch": {
                "tags": ["documents"],
                "summary": "Update the mutable fields of a document",
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["documents"],
                "summary": "Delete a document (admin only)",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/documents/{id}/file": {
            "post": {
                "tags": ["documents"],
                "summary": "Attach a scanned file to a document",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/documents/{id}/download": {
            "get": {
                "tags": ["documents"],
                "summary": "Issue a signed download token",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students": {
            "get": {
                "tags": ["students"],
                "summary": "List researchers with derived alert flags",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["students"],
                "summary": "Register a postgraduate researcher",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["students"],
                "summary": "Fetch one researcher with derived alert flags",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/{id}/dates": {
            "patch": {
                "tags": ["students"],
                "summary": "Set one lifecycle date",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/{id}/status": {
            "patch": {
                "tags": ["students"],
                "summary": "Move a researcher through the lifecycle",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/{id}/portfolio": {
            "get": {
                "tags": ["students"],
                "summary": "Fetch a researcher's digital portfolio",
                "responses": {"200": {"description": "OK"}}
            },
            "patch": {
                "tags": ["students"],
                "summary": "Add or remove published papers",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/{id}/portfolio/archive-links": {
            "post": {
                "tags": ["students"],
                "summary": "Cite an archive document in the portfolio",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/dashboard/alerts": {
            "get": {
                "tags": ["dashboard"],
                "summary": "Count alert flags across the roster",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/exports/register": {
            "get": {
                "tags": ["exports"],
                "summary": "Export the archive register as CSV or PDF",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/exports/postgraduates": {
            "get": {
                "tags": ["exports"],
                "summary": "Export the postgraduate roster as CSV or PDF",
                "responses": {"200": {"description": "OK"}}
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

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Department Records API",
	Description:      "Archive register, postgraduate tracker and alert dashboard for a university department.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
