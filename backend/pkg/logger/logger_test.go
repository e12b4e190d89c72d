package logger

import (
	"testing"

	"crewcheck/backend/config"
)

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(&config.LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("format=%q 不应失败: %v", format, err)
		}
		_ = l.Sync()
	}
}

func TestNewLogger_InvalidInput(t *testing.T) {
	if _, err := NewLogger(&config.LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Error("无效级别应返回错误")
	}
	if _, err := NewLogger(&config.LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Error("无效格式应返回错误")
	}
}
