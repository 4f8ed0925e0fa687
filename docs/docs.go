// Package docs 注册 swagger 文档，由 /swagger/*any 提供。
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/id/next": {
            "get": {
                "tags": ["idgen"],
                "summary": "Generate a snowflake id",
                "parameters": [
                    {"type": "integer", "name": "workerId", "in": "query"},
                    {"type": "integer", "name": "datacenterId", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/id/modules/{moduleKey}/next": {
            "get": {
                "tags": ["idgen"],
                "summary": "Generate an id with the worker registered for a module",
                "parameters": [
                    {"type": "string", "name": "moduleKey", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/todo/tasks": {
            "get": {
                "tags": ["todo"],
                "summary": "List tasks",
                "parameters": [
                    {"type": "string", "name": "moduleId", "in": "query"},
                    {"type": "string", "name": "status", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["todo"],
                "summary": "Create a task",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/announcements": {
            "get": {
                "tags": ["announcement"],
                "summary": "Page announcements",
                "parameters": [
                    {"type": "integer", "name": "pageNum", "in": "query"},
                    {"type": "integer", "name": "pageSize", "in": "query"},
                    {"type": "string", "name": "status", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/messages/send": {
            "post": {
                "tags": ["message"],
                "summary": "Send a message through a channel",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/tools/shop/commodities": {
            "get": {
                "tags": ["shop"],
                "summary": "Fetch commodity stock from the shop source",
                "responses": {"200": {"description": "OK"}, "500": {"description": "source unavailable"}}
            }
        },
        "/monitor/system": {
            "get": {
                "tags": ["monitor"],
                "summary": "Host metrics",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/images/share/{token}": {
            "get": {
                "tags": ["image"],
                "summary": "Access a shared image",
                "security": [],
                "parameters": [
                    {"type": "string", "name": "token", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "share not found"}}
            }
        }
    }
}`

// SwaggerInfo 文档元信息
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Productivity Hub API",
	Description:      "Todo, announcements, notifications, messaging, monitoring, id generation and image sharing.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
