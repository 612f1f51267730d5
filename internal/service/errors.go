package service

import "errors"

var (
	// ErrInvalidStage 当前阶段不允许该操作
	ErrInvalidStage = errors.New("operation not allowed in current stage")
	// ErrDocumentLocked 文档已锁定，禁止编辑
	ErrDocumentLocked = errors.New("document is locked")
	// ErrNoAutomaticTransition 当前阶段没有可自动推进的迁移
	ErrNoAutomaticTransition = errors.New("no automatic transition from current stage")
)
