package storage

import (
	"database/sql/driver"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/moyoez/batchshare/types"
)

// FileList is the files column, a JSON array of records keyed
// remote_ref, display_name, size_bytes, mime_type and media_kind on every driver.
type FileList []types.FileRecord

func (f FileList) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	data, err := sonic.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode files: %w", err)
	}
	return string(data), nil
}

func (f *FileList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*f = FileList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported files column type %T", src)
	}
	var files []types.FileRecord
	if err := sonic.Unmarshal(data, &files); err != nil {
		return fmt.Errorf("decode files: %w", err)
	}
	*f = files
	return nil
}
