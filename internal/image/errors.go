package image

import (
	"errors"
	"fmt"
)

// ErrNotInStorage 记录没有对应的对象 key
var ErrNotInStorage = errors.New("image not stored in cloud storage")

// ValidationError 上传内容不符合要求，不会触达任何存储
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Stage 上传流程状态
type Stage int

const (
	StageReceived Stage = iota
	StageValidated
	StageBlobStored
	StageRecordPersisted
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageValidated:
		return "validated"
	case StageBlobStored:
		return "blob-stored"
	case StageRecordPersisted:
		return "record-persisted"
	case StageDone:
		return "done"
	default:
		return "failed"
	}
}

// IngestError 上传失败，Stage 为失败前到达的最后状态
type IngestError struct {
	Stage Stage
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("upload failed after %s: %v", e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}
