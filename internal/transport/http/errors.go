package httptransport

import (
	"aidash/backend/internal/service"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// 服务注册表错误
	service.ErrServiceNameRequired: "服务名称不能为空",
	service.ErrServiceNameExists:   "服务名称已存在",
	service.ErrServiceNotFound:     "服务不存在",

	// API密钥错误
	service.ErrKeyNotFound:         "API密钥不存在",
	service.ErrKeyMaterialRequired: "密钥内容不能为空",

	// 系统提示词错误
	service.ErrPromptNotFound:        "提示词不存在",
	service.ErrPromptNameRequired:    "提示词名称不能为空",
	service.ErrPromptNameExists:      "提示词名称已存在",
	service.ErrPromptContentRequired: "提示词内容不能为空",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest = "请求参数格式错误"

	// 认证相关
	MsgAuthRequired       = "需要登录认证"
	MsgInvalidCredentials = "用户名或密码错误"
	MsgTokenExpired       = "登录已过期，请重新登录"
	MsgTokenInvalid       = "无效的访问令牌"
	MsgTooManyRequests    = "请求过于频繁，请稍后重试"

	// 用户相关
	MsgUserNotFound  = "用户不存在"
	MsgUserGetFailed = "获取用户信息失败"

	// 服务相关
	MsgServiceListFailed   = "获取服务列表失败"
	MsgServiceCreateFailed = "创建服务失败"
	MsgServiceDeleteFailed = "删除服务失败"

	// API密钥相关
	MsgKeyListFailed     = "获取密钥列表失败"
	MsgKeyCreateFailed   = "添加密钥失败"
	MsgKeyToggleFailed   = "切换密钥状态失败"
	MsgKeyActivateFailed = "激活密钥失败"
	MsgKeyDeleteFailed   = "删除密钥失败"

	// 提示词相关
	MsgPromptListFailed   = "获取提示词列表失败"
	MsgPromptCreateFailed = "创建提示词失败"
	MsgPromptUpdateFailed = "更新提示词失败"
	MsgPromptDeleteFailed = "删除提示词失败"

	// 仪表盘相关
	MsgSummaryGetFailed = "获取汇总数据失败"

	// 服务器错误
	MsgInternalError = "服务器内部错误，请稍后重试"
)
