package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/pagegate/internal/domain"
	"github.com/John-Robertt/pagegate/internal/htmlcheck"
)

func TestLoadEffective_NoConfigFile_Defaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	require.NoError(t, err)

	assert.Equal(t, cwd, eff.Root)
	assert.Equal(t, DefaultEntry, eff.Entry)
	assert.True(t, eff.Discover)
	assert.Equal(t, domain.DefaultChecks, eff.Checks)
	assert.Equal(t, htmlcheck.DefaultMinSize, eff.MinSize)
	assert.Equal(t, htmlcheck.DefaultMinTextChars, eff.MinTextChars)
	assert.Equal(t, LinkBaseRoot, eff.LinkBase)
	assert.Empty(t, eff.ConfigFile, "没有配置文件时不应记录路径")
}

func TestLoadEffective_PathRelativeToCwd(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{Path: "site"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "site"), eff.Root)
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigFile: "nope.yaml"})
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, Code(err))
}

func TestLoadEffective_InvalidYAML(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("entry: [unterminated\n"))

	_, err := LoadEffective(cwd, CLIArgs{})
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalid, Code(err))
}

func TestLoadEffective_EntryAndDiscoverCLIOverride(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("entry: home.html\ndiscover: true\n"))

	// CLI 未指定：使用配置文件。
	eff, err := LoadEffective(cwd, CLIArgs{})
	require.NoError(t, err)
	assert.Equal(t, "home.html", eff.Entry)
	assert.True(t, eff.Discover)
	assert.Equal(t, filepath.Join(cwd, FileName), eff.ConfigFile)

	// --entry 与 --discover=false 覆盖配置。
	eff, err = LoadEffective(cwd, CLIArgs{
		Entry:       "main.html",
		EntrySet:    true,
		Discover:    false,
		DiscoverSet: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "main.html", eff.Entry)
	assert.False(t, eff.Discover)
}

func TestLoadEffective_ChecksSubsetKeepsCanonicalOrder(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("checks: [links, Structure, assets]\n"))

	eff, err := LoadEffective(cwd, CLIArgs{})
	require.NoError(t, err)

	// exists 总是启用；顺序以固定执行顺序为准，与配置书写顺序无关。
	want := []domain.CheckID{domain.CheckExists, domain.CheckStructure, domain.CheckLinks, domain.CheckAssets}
	assert.Equal(t, want, eff.Checks)
	assert.True(t, eff.Enabled(domain.CheckAssets))
	assert.False(t, eff.Enabled(domain.CheckStyles))
}

func TestLoadEffective_UnknownCheck(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("checks: [spelling]\n"))

	_, err := LoadEffective(cwd, CLIArgs{})
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnknownCheck, Code(err))
}

func TestLoadEffective_FieldValidation(t *testing.T) {
	cases := map[string]string{
		"负数 min_size":       "min_size: -1\n",
		"负数 min_text_chars": "min_text_chars: -5\n",
		"未知 link_base":      "link_base: cwd\n",
		"entry 越界":          "entry: ../index.html\n",
		"tags 全为空白":        "tags: [\"\", \"  \"]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, FileName), []byte(body))

			_, err := LoadEffective(cwd, CLIArgs{})
			require.Error(t, err)
			assert.Equal(t, ErrCodeInvalid, Code(err))
		})
	}
}

func TestLoadEffective_ThresholdsAndTags(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`
min_size: 0
min_text_chars: 3
link_base: FILE
tags: [" DIV ", "", section]
exclude_dirs: [vendor]
`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), eff.MinSize)
	assert.Equal(t, 3, eff.MinTextChars)
	assert.Equal(t, LinkBaseFile, eff.LinkBase)
	assert.Equal(t, []string{"div", "section"}, eff.Tags)
	assert.Equal(t, []string{"vendor"}, eff.ExcludeDirs)
}

func TestDefault(t *testing.T) {
	eff := Default("/site")
	assert.Equal(t, "/site", eff.Root)
	assert.Equal(t, DefaultEntry, eff.Entry)
	assert.Equal(t, domain.DefaultChecks, eff.Checks)
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "创建目录失败")
	require.NoError(t, os.WriteFile(path, b, 0o644), "写入文件失败")
}
