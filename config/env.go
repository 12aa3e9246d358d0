package config

import "os"

// GetEnv 获取运行环境（优先级：APP_ENV > ENV > 默认 dev）
func GetEnv() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "dev"
}
