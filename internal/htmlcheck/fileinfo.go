package htmlcheck

import (
	"errors"
	"io/fs"
	"os"
)

// FileExists 当且仅当 path 处存在文件系统条目时返回 true。
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// NonEmpty 检查文件大小是否严格大于 minSize。
//
// 文件不存在时 applicable=false（不适用，既不算通过也不算失败）；
// 其他 stat 错误原样返回。
func NonEmpty(path string, minSize int64) (size int64, ok bool, applicable bool, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, false, nil
		}
		return 0, false, false, err
	}
	return fi.Size(), fi.Size() > minSize, true, nil
}
