// Package dataaccess 按会话选择本地或远程存储的统一读写入口，并维护读缓存。
package dataaccess

import (
	"errors"
	"fmt"
)

// Mode 存储模式
type Mode int

const (
	// ModeLocal 游客，读写本地存储
	ModeLocal Mode = iota
	// ModeRemote 已登录且选定了账本
	ModeRemote
	// ModeUnresolved 已登录但尚未确定账本：读取为空，写入报错
	ModeUnresolved
)

func (m Mode) String() string {
	switch m {
	case ModeLocal:
		return "local"
	case ModeRemote:
		return "remote"
	default:
		return "unresolved"
	}
}

var (
	ErrNoActiveLedger = errors.New("no active ledger selected")
	ErrInvalidID      = errors.New("invalid transaction id")
	ErrNoGuestKey     = errors.New("guest key is required")
)

// Session 调用方显式传入的身份与账本
type Session struct {
	UserID    uint
	GuestKey  string
	PaletteID string
}

// Mode 根据身份与账本决定模式
func (s Session) Mode() Mode {
	switch {
	case s.UserID == 0:
		return ModeLocal
	case s.PaletteID != "":
		return ModeRemote
	default:
		return ModeUnresolved
	}
}

// cacheKey (模式, 身份, 账本)
type cacheKey struct {
	mode     Mode
	identity string
	palette  string
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.mode, k.identity, k.palette)
}

func (s Session) key() cacheKey {
	switch s.Mode() {
	case ModeLocal:
		return cacheKey{mode: ModeLocal, identity: s.GuestKey}
	case ModeRemote:
		return cacheKey{mode: ModeRemote, identity: fmt.Sprint(s.UserID), palette: s.PaletteID}
	default:
		return cacheKey{mode: ModeUnresolved, identity: fmt.Sprint(s.UserID)}
	}
}

// ResolvePalette 选择当前账本：请求的账本（需是成员）> 最近使用 > 第一个 > 空
func ResolvePalette(memberOf []string, requested, lastUsed string) string {
	has := func(id string) bool {
		for _, p := range memberOf {
			if p == id {
				return true
			}
		}
		return false
	}
	switch {
	case requested != "" && has(requested):
		return requested
	case lastUsed != "" && has(lastUsed):
		return lastUsed
	case len(memberOf) > 0:
		return memberOf[0]
	default:
		return ""
	}
}
