package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Usage: "Inspect and modify Victor 9000 and IBM PC FAT12 disk images",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List a directory, or a hard disk image's partition table",
				Action:    listAction,
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "descend into subdirectories, parent before children"},
				},
			},
			{
				Name:      "extract",
				Usage:     "Copy a file out of an image",
				Action:    extractAction,
				ArgsUsage: "PATH DEST",
			},
			{
				Name:      "insert",
				Usage:     "Copy a file into an image",
				Action:    insertAction,
				ArgsUsage: "SRC PATH",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "overwrite", Value: true, Usage: "replace an existing file at PATH instead of failing"},
					&cli.StringFlag{Name: "attrs", Usage: "attribute letters to set on the new entry, e.g. RH"},
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete a file from an image",
				Action:    rmAction,
				ArgsUsage: "PATH",
			},
			{
				Name:      "attr",
				Usage:     "Toggle a file's attribute flags",
				Action:    attrAction,
				ArgsUsage: "PATH +R -H ...",
			},
			{
				Name:      "mkfs",
				Usage:     "Format a new blank image",
				Action:    mkfsAction,
				ArgsUsage: "OUT",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "variant", Required: true, Usage: "geometry slug, see catalog.All()"},
					&cli.StringFlag{Name: "label", Usage: "volume label to stamp into the root directory"},
				},
			},
			{
				Name:      "fsck",
				Usage:     "Check a volume's directory tree and cluster chains for damage",
				Action:    fsckAction,
				ArgsUsage: "PATH",
			},
			{
				Name:      "info",
				Usage:     "Print geometry and usage statistics for an image",
				Action:    infoAction,
				ArgsUsage: "PATH",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if _, ok := err.(cli.ExitCoder); ok {
			log.Print(err)
			cli.HandleExitCoder(err)
			return
		}
		log.Fatalf("fatal error: %s", err)
	}
}
