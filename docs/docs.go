// Package docs swag 生成的接口文档，修改接口注释后执行 swag init 重新生成
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
        "/api/v1/auth/login": {
            "post": {
                "description": "登录获取 JWT。携带 X-Guest-ID 时把该游客的本地交易导入个人账本",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["认证"],
                "summary": "用户登录",
                "parameters": [
                    {"type": "string", "description": "游客标识", "name": "X-Guest-ID", "in": "header"},
                    {"description": "登录信息", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "登录成功", "schema": {"$ref": "#/definitions/api.Response"}},
                    "401": {"description": "用户名或密码错误", "schema": {"$ref": "#/definitions/api.Response"}},
                    "429": {"description": "请求过于频繁", "schema": {"$ref": "#/definitions/api.Response"}}
                }
            }
        },
        "/api/v1/transactions": {
            "get": {
                "description": "游客读取本地数据；已登录读取当前账本，每页 20 条，more=true 时加载下一页",
                "produces": ["application/json"],
                "tags": ["交易"],
                "summary": "交易列表",
                "parameters": [
                    {"type": "string", "description": "游客标识", "name": "X-Guest-ID", "in": "header"},
                    {"type": "string", "description": "账本 ID", "name": "X-Palette-ID", "in": "header"},
                    {"type": "boolean", "description": "加载下一页", "name": "more", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "获取成功", "schema": {"$ref": "#/definitions/api.Response"}}
                }
            }
        },
        "/api/v1/summary": {
            "get": {
                "description": "金额为整数最小货币单位；游客额外返回本地存储占用",
                "produces": ["application/json"],
                "tags": ["统计"],
                "summary": "月度统计",
                "parameters": [
                    {"type": "integer", "description": "年份，默认当前年", "name": "year", "in": "query"},
                    {"type": "integer", "description": "月份 1-12，默认当前月", "name": "month", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "获取成功", "schema": {"$ref": "#/definitions/api.Response"}},
                    "400": {"description": "参数错误", "schema": {"$ref": "#/definitions/api.Response"}}
                }
            }
        }
    },
    "definitions": {
        "api.LoginRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "password": {"type": "string", "example": "password123"},
                "username": {"type": "string", "example": "testuser"}
            }
        },
        "api.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "message": {"type": "string"}
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
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Finpalette API",
	Description:      "家庭记账数据服务：游客本地记账、登录后导入个人账本、多人共享账本",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
