package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"github.com/warpdl/warpjs/cmd/common"
	"github.com/warpdl/warpjs/internal/script"
)

var evalFlags = []cli.Flag{
	configFlag,
	journalFlag,
	timeoutFlag,
}

func eval(ctx *cli.Context) error {
	src := strings.TrimSpace(strings.Join(ctx.Args(), " "))
	if src == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no source provided"))
	}
	sess, err := openSession(configPath, journalPath)
	if err != nil {
		common.PrintRuntimeErr(ctx, "eval", "setup", err)
		return ErrReported
	}
	defer sess.Close()

	cctx, cancel := commandContext(runTimeout)
	defer cancel()

	eng, err := script.NewEngine(cctx, sess.options(sess.settings.ScriptRoot, true))
	if err != nil {
		sess.owned = false
		common.PrintRuntimeErr(ctx, "eval", "engine", err)
		return ErrReported
	}
	defer func() {
		if err := eng.Close(); err != nil {
			sess.log.Warning("close engine: %v", err)
		}
	}()

	v, err := eng.RunString(cctx, "<eval>", src)
	if err != nil {
		common.PrintRuntimeErr(ctx, "eval", "run", err)
		return ErrReported
	}
	fmt.Fprintln(stdout, formatValue(v))
	if err := waitIdle(cctx, eng); err != nil {
		common.PrintRuntimeErr(ctx, "eval", "wait", err)
		return ErrReported
	}
	return nil
}

// formatValue renders an exported script value: strings verbatim,
// undefined as "undefined", everything else as JSON when possible.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "undefined"
	case string:
		return x
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
