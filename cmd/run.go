package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"

	"github.com/warpdl/warpjs/cmd/common"
	warpcommon "github.com/warpdl/warpjs/common"
	"github.com/warpdl/warpjs/internal/script"
)

var errOutsideRoot = errors.New("script is outside the script root")

var (
	configPath   string
	runTimeout   time.Duration
	journalPath  string
	watchScript  bool
	showProgress bool

	configFlag = cli.StringFlag{
		Name:        "config, c",
		Usage:       "path to a YAML config file",
		EnvVar:      warpcommon.ConfigPathEnv,
		Destination: &configPath,
	}
	journalFlag = cli.StringFlag{
		Name:        "journal, j",
		Usage:       "record scheduler events to this sqlite database",
		Destination: &journalPath,
	}
	timeoutFlag = cli.DurationFlag{
		Name:        "timeout, t",
		Usage:       "give up waiting for spawned work after this long (default: no limit)",
		Destination: &runTimeout,
	}

	runFlags = []cli.Flag{
		configFlag,
		journalFlag,
		timeoutFlag,
		cli.BoolFlag{
			Name:        "watch, w",
			Usage:       "rerun the script when it or a module it loaded changes",
			Destination: &watchScript,
		},
		cli.BoolFlag{
			Name:        "progress, p",
			Usage:       "show live task and interval counts while waiting",
			Destination: &showProgress,
		},
	}
)

func run(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	file := ctx.Args().First()
	if file == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no script provided"))
	}
	sess, err := openSession(configPath, journalPath)
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "setup", err)
		return ErrReported
	}
	defer sess.Close()

	root, name, err := splitScript(file, sess.settings.ScriptRoot)
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "resolve", err)
		return ErrReported
	}

	if watchScript {
		cctx, cancel := commandContext(0)
		defer cancel()
		err = watch(cctx, sess, root, name, runTimeout)
	} else {
		cctx, cancel := commandContext(runTimeout)
		defer cancel()
		_, err = runScript(cctx, sess, root, name, true)
	}
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", name, err)
		return ErrReported
	}
	return nil
}

// splitScript returns the directory scripts are loaded from and the path
// of file relative to it. With no configured root the script's own
// directory is used.
func splitScript(file, root string) (string, string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", "", err
	}
	if root == "" {
		return filepath.Dir(abs), filepath.Base(abs), nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", "", err
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return "", "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %s", errOutsideRoot, file)
	}
	return absRoot, filepath.ToSlash(rel), nil
}

// runScript runs name in a fresh engine and waits for it to go idle.
// It returns the module files the script loaded, also on failure.
func runScript(ctx context.Context, sess *session, root, name string, handOver bool) ([]string, error) {
	eng, err := script.NewEngine(ctx, sess.options(root, handOver))
	if err != nil {
		if handOver {
			sess.owned = false
		}
		return nil, err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			sess.log.Warning("close engine: %v", err)
		}
	}()

	if showProgress {
		p := mpb.NewWithContext(ctx, mpb.WithOutput(stderr))
		bar := common.InitStatusBar(p, name, eng.Stats)
		defer func() {
			bar.SetTotal(-1, true)
			p.Wait()
		}()
	}

	start := time.Now()
	if _, err := eng.RunFile(ctx, name); err != nil {
		return eng.Imported(), err
	}
	if err := waitIdle(ctx, eng); err != nil {
		return eng.Imported(), err
	}
	st := eng.Stats()
	sess.log.Debug("%s: %d tasks completed in %s", name, st.CompletedTasks, time.Since(start))
	return eng.Imported(), nil
}
