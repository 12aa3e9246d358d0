// Package entity 定义同步层镜像的服务端实体类型
// 实体字段对同步层基本不透明，只有 id 字段和少数补丁字段有约定含义
package entity

import "fmt"

// Kind 实体类型
type Kind string

const (
	KindTask     Kind = "task"
	KindRisk     Kind = "risk"
	KindDecision Kind = "decision"
	KindProject  Kind = "project"
	KindMeeting  Kind = "meeting"
)

// Kinds 全部实体类型
func Kinds() []Kind {
	return []Kind{KindTask, KindRisk, KindDecision, KindProject, KindMeeting}
}

// ParseKind 解析实体类型字符串
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindTask, KindRisk, KindDecision, KindProject, KindMeeting:
		return Kind(s), nil
	}
	return "", fmt.Errorf("未知实体类型: %q", s)
}

// Valid 检查实体类型是否合法
func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

// IDField 返回该实体类型的 id 字段名（服务端 JSON 字段）
func (k Kind) IDField() string {
	return string(k) + "_id"
}

func (k Kind) String() string {
	return string(k)
}
