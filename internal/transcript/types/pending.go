package types

import (
	"strings"

	"github.com/google/uuid"
)

// PendingPrefix 本地乐观消息 ID 前缀,服务端 ID 不会以此开头
const PendingPrefix = "pending-"

// NewPendingID 生成新的乐观消息 ID
func NewPendingID() string {
	return PendingPrefix + uuid.NewString()
}

// IsPendingID 是否属于乐观 ID 命名空间
func IsPendingID(id string) bool {
	return strings.HasPrefix(id, PendingPrefix)
}
