package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zester4/RaidenAlpha/tool"
)

// file reads are truncated before re-entering model context
const maxFileReadLen = 16000

// FileSystem returns a constructor for the sandboxed filesystem tool. All
// operations are confined to root; paths escaping it are rejected.
func FileSystem(root string) func() (tool.Definition, error) {
	return func() (tool.Definition, error) {
		if root == "" {
			return tool.Definition{}, errors.New("file_system_operations requires a workspace root")
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return tool.Definition{}, err
		}

		return tool.New("file_system_operations",
			func(_ context.Context, args tool.Args) (string, error) {
				op := args.String("operation")
				path, err := resolvePath(abs, args.String("path"))
				if err != nil {
					return "", err
				}

				switch op {
				case "read":
					return readFile(path)
				case "write":
					return writeFile(path, args.String("content"), false)
				case "append":
					return writeFile(path, args.String("content"), true)
				case "list":
					return listDir(path)
				case "delete":
					if err := os.Remove(path); err != nil {
						return "", tool.Failf("file_system_operations", "delete failed: %v", err)
					}
					return fmt.Sprintf("Deleted %s", filepath.Base(path)), nil
				case "exists":
					if _, err := os.Stat(path); err != nil {
						return "false", nil
					}
					return "true", nil
				case "info":
					return fileInfo(path)
				default:
					return "", tool.Failf("file_system_operations", "unsupported operation %q", op)
				}
			},
			tool.Description("Reads, writes, and inspects files inside the agent workspace."),
			tool.EnumParameter("operation", "The filesystem operation to perform",
				[]string{"read", "write", "append", "list", "delete", "exists", "info"}, true),
			tool.Parameter("path", "string", "Path relative to the workspace root", true),
			tool.Parameter("content", "string", "Content for write and append operations", false),
		)
	}
}

func resolvePath(root, rel string) (string, error) {
	joined := filepath.Join(root, rel)
	r, err := filepath.Rel(root, joined)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", tool.Failf("file_system_operations", "path %q escapes the workspace", rel)
	}
	return joined, nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", tool.Failf("file_system_operations", "read failed: %v", err)
	}
	content := string(data)
	if len(content) > maxFileReadLen {
		content = content[:maxFileReadLen] + "\n...[truncated]"
	}
	return content, nil
}

func writeFile(path, content string, appendTo bool) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", tool.Failf("file_system_operations", "write failed: %v", err)
	}
	flags := os.O_CREATE | os.O_WRONLY
	if appendTo {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return "", tool.Failf("file_system_operations", "write failed: %v", err)
	}
	defer f.Close()
	n, err := f.WriteString(content)
	if err != nil {
		return "", tool.Failf("file_system_operations", "write failed: %v", err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", n, filepath.Base(path)), nil
}

func listDir(path string) (string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", tool.Failf("file_system_operations", "list failed: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "(empty directory)", nil
	}
	return strings.Join(names, "\n"), nil
}

func fileInfo(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", tool.Failf("file_system_operations", "stat failed: %v", err)
	}
	kind := "file"
	if fi.IsDir() {
		kind = "directory"
	}
	return fmt.Sprintf("%s: %s, %d bytes, modified %s",
		fi.Name(), kind, fi.Size(), fi.ModTime().UTC().Format("2006-01-02 15:04:05 MST")), nil
}
