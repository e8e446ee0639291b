package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/John-Robertt/pagegate/internal/app/run"
	"github.com/John-Robertt/pagegate/internal/config"
	"github.com/John-Robertt/pagegate/internal/domain"
	"github.com/John-Robertt/pagegate/internal/infra/fsx"
	"github.com/John-Robertt/pagegate/internal/watch"
)

// version 在构建时通过 -ldflags 注入。
var version = "dev"

const (
	formatText = "text"
	formatJSON = "json"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// exitError 携带命令的退出码；输出已在返回前完成。
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("退出码 %d", e.code) }

func exitWith(code int) error {
	if code == 0 {
		return nil
	}
	return &exitError{code: code}
}

// execute 运行 CLI 并返回进程退出码：0 全部通过；1 有失败/配置错误/中止；2 参数错误。
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "参数错误：%v\n", err)
	return 2
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagegate",
		Short: "部署前的静态站点 HTML 检查",
		Long: `pagegate 在部署前检查静态站点：入口文件是否存在、HTML 基本结构、
标签开闭、可见内容、调试脚本、样式与本地链接。

退出码：0 全部通过；1 有检查失败、配置错误或运行中止；2 参数错误。`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newCheckCommand(stdout, stderr))
	cmd.AddCommand(newWatchCommand(stdout, stderr))
	cmd.AddCommand(newVersionCommand(stdout))
	return cmd
}

// runOptions 是 check 与 watch 共用的参数。
type runOptions struct {
	entry      string
	noDiscover bool
	configFile string
	format     string
	report     string
	verbose    bool
}

func addRunFlags(cmd *cobra.Command, o *runOptions) {
	f := cmd.Flags()
	f.StringVar(&o.entry, "entry", config.DefaultEntry, "入口文件（相对根目录）")
	f.BoolVar(&o.noDiscover, "no-discover", false, "只检查入口文件，不扫描其他 .html")
	f.StringVar(&o.configFile, "config", "", "配置文件路径（默认读取 <path>/"+config.FileName+"，不存在则忽略）")
	f.StringVar(&o.format, "format", formatText, "输出格式：text|json")
	f.StringVar(&o.report, "report", "", "把 JSON 报告写入该文件")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "在 stderr 输出调试日志")
}

func (o *runOptions) validate() error {
	switch o.format {
	case formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("--format 只能是 text 或 json，实际是 %q", o.format)
	}
}

// cliArgs 把 flag 转成 config.CLIArgs，并保留“是否显式指定”。
func (o *runOptions) cliArgs(cmd *cobra.Command, args []string) config.CLIArgs {
	ca := config.CLIArgs{
		ConfigFile:  o.configFile,
		Entry:       o.entry,
		EntrySet:    cmd.Flags().Changed("entry"),
		Discover:    !o.noDiscover,
		DiscoverSet: cmd.Flags().Changed("no-discover"),
	}
	if len(args) > 0 {
		ca.Path = args[0]
	}
	return ca
}

func newCheckCommand(stdout, stderr io.Writer) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "检查一次并以退出码报告结果",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validate(); err != nil {
				return err
			}
			log := newLogger(o.verbose, stderr)
			defer func() { _ = log.Sync() }()

			return exitWith(checkOnce(cmd.Context(), o, o.cliArgs(cmd, args), log, stdout, stderr))
		},
	}
	addRunFlags(cmd, o)
	return cmd
}

func newWatchCommand(stdout, stderr io.Writer) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "检查一次，之后在文件变化时重新检查（Ctrl+C 结束）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validate(); err != nil {
				return err
			}
			log := newLogger(o.verbose, stderr)
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ca := o.cliArgs(cmd, args)
			eff, err := loadConfig(ca)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return exitWith(1)
			}

			w, err := watch.New(eff.Root, eff.ExcludeDirs, log)
			if err != nil {
				fmt.Fprintf(stderr, "启动监听失败：%v\n", err)
				return exitWith(1)
			}
			defer func() { _ = w.Close() }()

			code := w.Run(ctx, func(ctx context.Context) int {
				return checkOnce(ctx, o, ca, log, stdout, stderr)
			})
			return exitWith(code)
		},
	}
	addRunFlags(cmd, o)
	return cmd
}

func newVersionCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "pagegate %s\n", version)
		},
	}
}

func loadConfig(ca config.CLIArgs) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, fmt.Errorf("读取当前目录失败：%w", err)
	}
	return config.LoadEffective(cwd, ca)
}

// checkOnce 执行一次完整检查并返回退出码。配置每次重新读取，watch 下修改配置即可生效。
func checkOnce(ctx context.Context, o *runOptions, ca config.CLIArgs, log *zap.Logger, stdout, stderr io.Writer) int {
	eff, err := loadConfig(ca)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if eff.ConfigFile != "" {
		log.Debug("config loaded", zap.String("path", eff.ConfigFile))
	}

	var obs run.Observer
	if o.format == formatText {
		obs = newConsole(stdout, colorEnabled(stdout))
	}

	rr, runErr := run.RunAllWithObserver(ctx, eff, log, obs)

	code := rr.ExitCode()
	if o.report != "" {
		if err := writeReportFile(o.report, rr); err != nil {
			fmt.Fprintf(stderr, "写入报告失败：%s\n", describeWriteError(err))
			code = 1
		}
	}
	if o.format == formatJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rr); err != nil {
			fmt.Fprintf(stderr, "输出 JSON 失败：%v\n", err)
			code = 1
		}
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "检查中止：%v\n", runErr)
		return 1
	}
	return code
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(abs, b)
}

// describeWriteError 为 --report 的写入错误补充可操作的提示。
func describeWriteError(err error) string {
	switch {
	case fsx.IsPathTypeConflict(err):
		return err.Error() + "；--report 必须指向普通文件"
	case fsx.IsCrossDevice(err):
		return err.Error() + "；报告所在目录的挂载异常，请换一个目录"
	default:
		return err.Error()
	}
}

// newLogger：默认不输出任何日志；-v 时在 stderr 输出开发格式的调试日志。
func newLogger(verbose bool, w io.Writer) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core)
}
