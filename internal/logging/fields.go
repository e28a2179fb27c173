package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供 HTTP 请求的基础字段，供服务端日志复用。
func RequestFields(requestID, method, path string, status int) logrus.Fields {
	fields := logrus.Fields{
		"action": "http",
		"method": method,
		"path":   path,
		"status": status,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}

// CacheFields 描述缓存配置，启动与 check-config 日志共用。
func CacheFields(cacheDir, mode string, crossProcess bool) logrus.Fields {
	return logrus.Fields{
		"cache_dir":     cacheDir,
		"cache_mode":    mode,
		"cross_process": crossProcess,
	}
}
