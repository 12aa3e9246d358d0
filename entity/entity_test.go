package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind("task")
	require.NoError(t, err)
	assert.Equal(t, KindTask, k)

	_, err = ParseKind("widget")
	assert.Error(t, err)
}

func TestKind_IDField(t *testing.T) {
	assert.Equal(t, "task_id", KindTask.IDField())
	assert.Equal(t, "risk_id", KindRisk.IDField())
	assert.Equal(t, "meeting_id", KindMeeting.IDField())
}

func TestItemID(t *testing.T) {
	item := Item{"risk_id": "r1", "risk_level": RiskLevelHigh}

	id, ok := ItemID(KindRisk, item)
	require.True(t, ok)
	assert.Equal(t, "r1", id)

	_, ok = ItemID(KindTask, item)
	assert.False(t, ok)
}

func TestNextTaskStatus(t *testing.T) {
	assert.Equal(t, TaskStatusInProgress, NextTaskStatus(TaskStatusNotStarted))
	assert.Equal(t, TaskStatusDone, NextTaskStatus(TaskStatusInProgress))
	assert.Equal(t, TaskStatusNotStarted, NextTaskStatus(TaskStatusDone))
	// 未知状态回到起点
	assert.Equal(t, TaskStatusNotStarted, NextTaskStatus("???"))
}

func TestClonePage(t *testing.T) {
	p := Page{
		Items: []Item{{"task_id": "t1", "status": TaskStatusNotStarted}},
		Total: 1,
	}

	clone := ClonePage(p)
	clone.Items[0]["status"] = TaskStatusDone

	// 原始数据不受克隆修改影响
	assert.Equal(t, TaskStatusNotStarted, p.Items[0]["status"])
}
