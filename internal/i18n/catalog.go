package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. The English text is the key itself.
const (
	MsgWhitelistAdded     = "IP %s added to whitelist"
	MsgBlacklistAdded     = "IP %s added to blacklist"
	MsgWhitelistDuplicate = "IP %s is already in the whitelist"
	MsgBlacklistDuplicate = "IP %s is already in the blacklist"
	MsgInvalidIP          = "please enter a valid IP address"
	MsgWhitelistRemoved   = "IP %s removed from whitelist"
	MsgBlacklistRemoved   = "IP %s removed from blacklist"

	MsgSecuritySaved    = "security settings saved"
	MsgSecurityReset    = "security settings reset to defaults"
	MsgRateLimitSaved   = "rate limit settings saved"
	MsgRateLimitInvalid = "invalid rate limit settings: %s"
	MsgSystemSaved      = "system settings saved"
	MsgSystemInvalid    = "invalid system settings: %s"
	MsgWAFEnabled       = "WAF enabled"
	MsgWAFDisabled      = "WAF disabled"
	MsgConfigReloaded   = "configuration reloaded from disk"
	MsgThreatLevelSet   = "threat level set to %s"
	MsgThreatInvalid    = "invalid threat level: %s"

	MsgLogsRefreshed = "logs refreshed"
	MsgLogsCleared   = "logs cleared"
	MsgRestarting    = "restarting WAF..."
	MsgRestarted     = "WAF restarted"
	MsgUnconfirmed   = "operation cancelled: confirmation required"

	MsgConfirmClearLogs = "Clear all logs?"
	MsgConfirmRestart   = "Restart the WAF? Protection will be briefly interrupted."

	MsgUptime = "%dh %dm"

	MsgUnknownList      = "unknown list: %s"
	MsgUnknownTask      = "unknown task: %s"
	MsgHistoryDisabled  = "revision history disabled"
	MsgRevisionNotFound = "revision not found"
	MsgAuditDisabled    = "audit trail disabled"
)

// Labels.
const (
	LabelRunning  = "Running"
	LabelStopped  = "Stopped"
	LabelLow      = "Low"
	LabelMedium   = "Medium"
	LabelHigh     = "High"
	LabelCritical = "Critical"
	LabelUnknown  = "Unknown"

	LabelDashboard = "Dashboard"
	LabelSecurity  = "Security"
	LabelIPFilter  = "IP Filter"
	LabelLogs      = "Logs"
	LabelSystem    = "System"

	LabelTotalRequests   = "Total Requests"
	LabelBlockedRequests = "Blocked Requests"
	LabelSafeRequests    = "Safe Requests"
	LabelThreatLevel     = "Threat Level"
	LabelUptime          = "Uptime"
	LabelWhitelist       = "Whitelist"
	LabelBlacklist       = "Blacklist"

	LabelPending      = "unsaved defaults"
	LabelConfirm      = "Confirm"
	LabelCancel       = "Cancel"
	LabelAddWhitelist = "Add to whitelist"
	LabelAddBlacklist = "Add to blacklist"
	LabelLogFilter    = "Filter: %s"
	LabelNoEntries    = "(none)"
)

var zhHans = map[string]string{
	MsgWhitelistAdded:     "IP %s 已添加到白名单",
	MsgBlacklistAdded:     "IP %s 已添加到黑名单",
	MsgWhitelistDuplicate: "IP %s 已存在于白名单中",
	MsgBlacklistDuplicate: "IP %s 已存在于黑名单中",
	MsgInvalidIP:          "请输入有效的IP地址",
	MsgWhitelistRemoved:   "IP %s 已从白名单中移除",
	MsgBlacklistRemoved:   "IP %s 已从黑名单中移除",

	MsgSecuritySaved:    "安全配置已保存",
	MsgSecurityReset:    "安全配置已重置为默认值",
	MsgRateLimitSaved:   "速率限制配置已保存",
	MsgRateLimitInvalid: "速率限制配置无效: %s",
	MsgSystemSaved:      "系统配置已保存",
	MsgSystemInvalid:    "系统配置无效: %s",
	MsgWAFEnabled:       "WAF已启用",
	MsgWAFDisabled:      "WAF已禁用",
	MsgConfigReloaded:   "已从磁盘重新加载配置",
	MsgThreatLevelSet:   "威胁等级已设置为 %s",
	MsgThreatInvalid:    "无效的威胁等级: %s",

	MsgLogsRefreshed: "日志已刷新",
	MsgLogsCleared:   "日志已清空",
	MsgRestarting:    "正在重启WAF...",
	MsgRestarted:     "WAF重启成功",
	MsgUnconfirmed:   "操作已取消: 需要确认",

	MsgConfirmClearLogs: "确定要清空所有日志吗？",
	MsgConfirmRestart:   "确定要重启WAF吗？这将短暂中断防护功能。",

	MsgUptime: "%d小时%d分钟",

	MsgUnknownList:      "未知名单: %s",
	MsgUnknownTask:      "未知任务: %s",
	MsgHistoryDisabled:  "配置历史未启用",
	MsgRevisionNotFound: "配置版本不存在",
	MsgAuditDisabled:    "审计日志未启用",

	LabelRunning:  "运行中",
	LabelStopped:  "已停止",
	LabelLow:      "低",
	LabelMedium:   "中",
	LabelHigh:     "高",
	LabelCritical: "严重",
	LabelUnknown:  "未知",

	LabelDashboard: "仪表盘",
	LabelSecurity:  "安全配置",
	LabelIPFilter:  "IP过滤",
	LabelLogs:      "日志查看",
	LabelSystem:    "系统设置",

	LabelTotalRequests:   "总请求数",
	LabelBlockedRequests: "拦截请求",
	LabelSafeRequests:    "安全请求",
	LabelThreatLevel:     "威胁等级",
	LabelUptime:          "运行时间",
	LabelWhitelist:       "白名单",
	LabelBlacklist:       "黑名单",

	LabelPending:      "未保存的默认值",
	LabelConfirm:      "确认",
	LabelCancel:       "取消",
	LabelAddWhitelist: "添加到白名单",
	LabelAddBlacklist: "添加到黑名单",
	LabelLogFilter:    "筛选: %s",
	LabelNoEntries:    "(无)",

	// Form fields
	"SQL Injection Protection":  "SQL注入防护",
	"XSS Protection":            "XSS防护",
	"Path Traversal Protection": "路径遍历防护",
	"User-Agent Filtering":      "User-Agent过滤",
	"Rate Limiting":             "速率限制",
	"Requests per Minute":       "每分钟请求数",
	"Burst":                     "突发上限",
	"Log Level":                 "日志级别",
	"Action":                    "处理动作",

	// Log viewer messages
	"WAF started":                    "WAF启动成功",
	"SQL injection attempt detected": "检测到SQL注入尝试",
	"malicious request blocked":      "阻止恶意请求",
	"configuration updated":          "配置更新成功",
	"processing normal request":      "处理正常请求",
	"log refreshed":                  "日志已刷新",
	"normal request processed":       "正常请求处理",
	"rate limit threshold reached":   "Rate limit达到阈值",
	"configuration check completed":  "配置检查完成",
}

func init() {
	for key, msg := range zhHans {
		_ = message.SetString(language.SimplifiedChinese, key, msg)
	}
}
