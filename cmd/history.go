package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/warpdl/warpjs/cmd/common"
)

var (
	historyLimit int

	historyFlags = []cli.Flag{
		configFlag,
		journalFlag,
		cli.IntFlag{
			Name:        "limit, n",
			Usage:       "number of events to show",
			Value:       DEF_HISTORY_LIMIT,
			Destination: &historyLimit,
		},
	}
)

func history(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	sess, err := openSession(configPath, journalPath)
	if err != nil {
		common.PrintRuntimeErr(ctx, "history", "setup", err)
		return ErrReported
	}
	defer sess.Close()
	if sess.journal == nil {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no journal configured, use --journal or WARPJS_JOURNAL"))
	}

	entries, err := sess.journal.Recent(context.Background(), historyLimit)
	if err != nil {
		common.PrintRuntimeErr(ctx, "history", "recent", err)
		return ErrReported
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "warpjs: no events recorded")
		return nil
	}

	var b strings.Builder
	b.WriteString("Recent scheduler events:")
	b.WriteString("\n\n---------------------------------------------------------------------------")
	b.WriteString("\n| Num |        Kind        |  ID  |   Took   |  Finished  |      Error      |")
	b.WriteString("\n|-----|--------------------|------|----------|------------|-----------------|")
	for i, e := range entries {
		finished := "-"
		if !e.Finished.IsZero() {
			finished = e.Finished.Local().Format("15:04:05")
		}
		errText := strings.ReplaceAll(e.Err, "\n", " ")
		if errText == "" {
			errText = "-"
		}
		fmt.Fprintf(&b, "\n|%s|%s|%s|%s|%s|%s|",
			common.Trunc(fmt.Sprint(i+1), 5),
			common.Trunc(string(e.Kind), 20),
			common.Trunc(fmt.Sprint(e.Subject), 6),
			common.Trunc(e.Took.Round(time.Millisecond).String(), 10),
			common.Trunc(finished, 12),
			common.Trunc(errText, 17),
		)
	}
	b.WriteString("\n---------------------------------------------------------------------------")
	fmt.Fprintln(stdout, b.String())
	return nil
}
