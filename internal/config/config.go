package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/pagegate/internal/domain"
	"github.com/John-Robertt/pagegate/internal/htmlcheck"
)

const (
	// ErrCodeNotFound 表示通过 --config 显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeUnknownCheck 表示 checks 中出现了未知的检查项。
	ErrCodeUnknownCheck = "config_unknown_check"
)

const (
	// FileName 是根目录下可选配置文件的固定文件名。
	FileName = "pagegate.yaml"
	// DefaultEntry 是入口文件的默认文件名（相对根目录）。
	DefaultEntry = "index.html"

	LinkBaseRoot = "root"
	LinkBaseFile = "file"
)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --discover=false 必须能覆盖配置中的 discover: true。
type CLIArgs struct {
	Path string

	// ConfigFile 为空时读取 <root>/pagegate.yaml（可选）；非空时必须存在。
	ConfigFile string

	Entry    string
	EntrySet bool

	Discover    bool
	DiscoverSet bool
}

// FileConfig 对应 pagegate.yaml 的解析结构。
type FileConfig struct {
	Entry        string   `yaml:"entry"`
	Discover     *bool    `yaml:"discover"`
	ExcludeDirs  []string `yaml:"exclude_dirs"`
	Checks       []string `yaml:"checks"`
	Tags         []string `yaml:"tags"`
	MinSize      *int64   `yaml:"min_size"`
	MinTextChars *int     `yaml:"min_text_chars"`
	LinkBase     string   `yaml:"link_base"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Root  string
	Entry string

	Discover    bool
	ExcludeDirs []string

	// Checks 按固定执行顺序排列，且总是包含 exists。
	Checks []domain.CheckID
	Tags   []string

	MinSize      int64
	MinTextChars int
	LinkBase     string

	// ConfigFile 是实际读取到的配置文件路径；未读取时为空。
	ConfigFile string
}

// Enabled 判断某个检查是否启用。
func (e EffectiveConfig) Enabled(id domain.CheckID) bool {
	for _, c := range e.Checks {
		if c == id {
			return true
		}
	}
	return false
}

// Default 返回以 root 为根、不读取任何配置文件时的最终配置。
func Default(root string) EffectiveConfig {
	eff, _ := merge(root, CLIArgs{}, FileConfig{}, "")
	return eff
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid, ErrCodeUnknownCheck:
		if e.Path == "" {
			// 没有配置文件参与（例如 CLI 参数本身不合法）。
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在，相对路径以 cwd 为基准
// 2) 否则尝试读取 <root>/pagegate.yaml（可选，不存在不报错）
//
// root：CLI path > cwd。
//
// 覆盖优先级（固定）：
// - entry / discover：CLI > config > 默认
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	root := cwdAbs
	if strings.TrimSpace(cli.Path) != "" {
		root = absCleanFrom(cwdAbs, cli.Path)
	}

	cfgPath := filepath.Join(root, FileName)
	required := false
	if strings.TrimSpace(cli.ConfigFile) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigFile)
		required = true
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	return merge(root, cli, fc, cfgPath)
}

// merge 合并 CLI 与配置文件。cfgPath 为空表示没有读取任何配置文件。
func merge(root string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	entry := DefaultEntry
	if cli.EntrySet {
		entry = cli.Entry
	} else if strings.TrimSpace(fc.Entry) != "" {
		entry = fc.Entry
	}
	entry = filepath.ToSlash(filepath.Clean(strings.TrimSpace(entry)))
	if entry == "" || entry == "." {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("entry 不能为空")}
	}
	if filepath.IsAbs(entry) || entry == ".." || strings.HasPrefix(entry, "../") {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("entry 必须是根目录内的相对路径，实际是 %q", entry)}
	}

	discover := true
	if cli.DiscoverSet {
		discover = cli.Discover
	} else if fc.Discover != nil {
		discover = *fc.Discover
	}

	checks, err := normalizeChecks(fc.Checks)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeUnknownCheck, Path: cfgPath, Err: err}
	}

	tags := htmlcheck.DefaultBalancedTags
	if len(fc.Tags) > 0 {
		tags = make([]string, 0, len(fc.Tags))
		for _, t := range fc.Tags {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			tags = append(tags, t)
		}
		if len(tags) == 0 {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("tags 不能只包含空白项")}
		}
	}

	minSize := htmlcheck.DefaultMinSize
	if fc.MinSize != nil {
		if *fc.MinSize < 0 {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("min_size 不能为负数：%d", *fc.MinSize)}
		}
		minSize = *fc.MinSize
	}

	minText := htmlcheck.DefaultMinTextChars
	if fc.MinTextChars != nil {
		if *fc.MinTextChars < 0 {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("min_text_chars 不能为负数：%d", *fc.MinTextChars)}
		}
		minText = *fc.MinTextChars
	}

	linkBase := strings.ToLower(strings.TrimSpace(fc.LinkBase))
	switch linkBase {
	case "":
		linkBase = LinkBaseRoot
	case LinkBaseRoot, LinkBaseFile:
		// ok
	default:
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("link_base 只能是 root 或 file，实际是 %q", fc.LinkBase)}
	}

	return EffectiveConfig{
		Root:         root,
		Entry:        entry,
		Discover:     discover,
		ExcludeDirs:  append([]string(nil), fc.ExcludeDirs...),
		Checks:       checks,
		Tags:         append([]string(nil), tags...),
		MinSize:      minSize,
		MinTextChars: minText,
		LinkBase:     linkBase,
		ConfigFile:   cfgPath,
	}, nil
}

// normalizeChecks 把配置中的检查子集规范化为固定执行顺序；exists 总是启用（它是入口闸门）。
func normalizeChecks(raw []string) ([]domain.CheckID, error) {
	if len(raw) == 0 {
		return append([]domain.CheckID(nil), domain.DefaultChecks...), nil
	}

	want := map[domain.CheckID]bool{domain.CheckExists: true}
	for _, s := range raw {
		id, err := domain.ParseCheckID(s)
		if err != nil {
			return nil, err
		}
		want[id] = true
	}

	out := make([]domain.CheckID, 0, len(want))
	for _, id := range domain.AllChecks {
		if want[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
