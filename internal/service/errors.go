package service

import "errors"

// ErrRejected 所有"业务校验拒绝"类错误都满足 errors.Is(err, ErrRejected)
var ErrRejected = errors.New("rejected")

// rejection 校验类错误：对用户展示 msg，不是存储故障
type rejection struct{ msg string }

func (e *rejection) Error() string        { return e.msg }
func (e *rejection) Is(target error) bool { return target == ErrRejected }

func newRejection(msg string) error { return &rejection{msg: msg} }

var (
	ErrSelfRequest     = newRejection("cannot send a friend request to yourself")
	ErrAlreadyFriends  = newRejection("already friends")
	ErrAlreadySent     = newRejection("friend request already sent")
	ErrIncomingPending = newRejection("this user has already sent you a friend request")
	ErrRequestNotFound = newRejection("friend request not found")
	ErrNotPending      = newRejection("friend request is no longer pending")
	ErrNotRecipient    = newRejection("friend request is not addressed to you")
	ErrInvalidInput    = newRejection("invalid user id")
	ErrSelfOverlay     = newRejection("cannot apply a visibility rule to yourself")
	ErrUserNotFound    = newRejection("user not found")
)

// IsRejection 区分业务拒绝与存储/网络故障
func IsRejection(err error) bool { return errors.Is(err, ErrRejected) }
