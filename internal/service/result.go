package service

import "errors"

const (
	MsgSent      = "Sent!"
	MsgAccepted  = "Accepted"
	MsgRejected  = "Rejected"
	MsgCancelled = "Cancelled"
	MsgRemoved   = "Removed"
	MsgUpdated   = "Updated"
	// MsgInternal 存储故障对用户统一展示的文案
	MsgInternal = "something went wrong, please try again"
)

// Result 面向调用方的统一结果：校验拒绝与存储故障走同一种返回形态
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ResultOf 把操作返回的 error 折叠成 Result；err 为 nil 时使用 okMessage
func ResultOf(err error, okMessage string) Result {
	if err == nil {
		return Result{Success: true, Message: okMessage}
	}
	var rej *rejection
	if errors.As(err, &rej) {
		return Result{Success: false, Message: rej.msg}
	}
	return Result{Success: false, Message: MsgInternal}
}
