package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/v9k/vfat/blockdev"
	"github.com/v9k/vfat/catalog"
	"github.com/v9k/vfat/geometry"
	"github.com/v9k/vfat/vfaterr"
	"github.com/v9k/vfat/volume"
)

// exitCodeForErr maps a vfaterr.DriverError's Errno onto the CLI's
// exit-code contract: 1 for a malformed request, 2 for an I/O failure,
// 3 for corruption a fsck-style check detected. Anything that isn't a
// DriverError is treated as an I/O failure, since it almost always
// originated from the os package.
func exitCodeForErr(err error) int {
	de, ok := err.(*vfaterr.DriverError)
	if !ok {
		return 2
	}
	switch de.Errno() {
	case vfaterr.EINVAL, vfaterr.ENOENT, vfaterr.EEXIST, vfaterr.ENOTDIR, vfaterr.EISDIR,
		vfaterr.EPARTITIONREQUIRED, vfaterr.EPARTITIONRANGE, vfaterr.EAMBIGUOUS, vfaterr.EUNKNOWNFORMAT:
		return 1
	case vfaterr.ECORRUPTLABEL, vfaterr.ECORRUPTBOOTSECTOR, vfaterr.ECORRUPTCHAIN, vfaterr.ECROSSLINK:
		return 3
	default:
		return 2
	}
}

func fail(err error) error {
	return cli.Exit(err.Error(), exitCodeForErr(err))
}

func usageErr(format string, args ...interface{}) error {
	return cli.Exit(fmt.Sprintf(format, args...), 1)
}

func listAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageErr("list requires exactly one PATH argument")
	}
	spec, err := ParsePathSpec(c.Args().Get(0))
	if err != nil {
		return fail(err)
	}
	opened, err := openTarget(spec, true)
	if err != nil {
		return fail(err)
	}
	defer opened.Close()

	switch {
	case opened.HD != nil:
		for _, row := range opened.HD.ListPartitions() {
			fmt.Fprintf(c.App.Writer, "%2d  %-16s  %10d\n", row.Index, row.Name, row.Size)
		}
		return nil

	case opened.CPM != nil:
		files, err := opened.CPM.List()
		if err != nil {
			return fail(err)
		}
		for _, f := range files {
			flags := "-"
			if f.ReadOnly || f.System {
				var sb strings.Builder
				if f.ReadOnly {
					sb.WriteByte('R')
				}
				if f.System {
					sb.WriteByte('S')
				}
				flags = sb.String()
			}
			fmt.Fprintf(c.App.Writer, "%2d  %-4s  %-12s  %8d\n", f.User, flags, f.FullName(), f.Size)
		}
		return nil

	default:
		vol, err := opened.requireVolume()
		if err != nil {
			return fail(err)
		}
		entries, err := vol.List(spec.InternalPath, c.Bool("recursive"))
		if err != nil {
			return fail(err)
		}
		for _, e := range entries {
			fmt.Fprintf(c.App.Writer, "%-5s  %-12s  %8d\n", e.AttrString(), e.Name, e.FileSize)
		}
		return nil
	}
}

func extractAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return usageErr("extract requires PATH and DEST arguments")
	}
	spec, err := ParsePathSpec(c.Args().Get(0))
	if err != nil {
		return fail(err)
	}
	destPath := c.Args().Get(1)

	opened, err := openTarget(spec, true)
	if err != nil {
		return fail(err)
	}
	defer opened.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fail(vfaterr.NewFromError(vfaterr.EIO, err))
	}
	defer dest.Close()

	if opened.CPM != nil {
		if err := opened.CPM.Extract(spec.InternalPath, dest); err != nil {
			return fail(err)
		}
		return nil
	}

	vol, err := opened.requireVolume()
	if err != nil {
		return fail(err)
	}
	if err := vol.CopyOut(spec.InternalPath, dest); err != nil {
		return fail(err)
	}
	return nil
}

func insertAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return usageErr("insert requires SRC and PATH arguments")
	}
	srcPath := c.Args().Get(0)
	spec, err := ParsePathSpec(c.Args().Get(1))
	if err != nil {
		return fail(err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fail(vfaterr.NewFromError(vfaterr.EIO, err))
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return fail(vfaterr.NewFromError(vfaterr.EIO, err))
	}

	opened, err := openTarget(spec, false)
	if err != nil {
		return fail(err)
	}
	defer opened.Close()

	vol, err := opened.requireVolume()
	if err != nil {
		return fail(err)
	}
	attrs, err := parseAttrLetters(c.String("attrs"))
	if err != nil {
		return fail(err)
	}
	if err := vol.CopyIn(spec.InternalPath, src, info.Size(), c.Bool("overwrite"), attrs, info.ModTime()); err != nil {
		return fail(err)
	}
	return nil
}

// parseAttrLetters turns a bare string of attribute letters like "RH" into
// the corresponding attribute bits, using the same letters attrAction's
// +X/-X toggles accept.
func parseAttrLetters(letters string) (int, error) {
	attrs := 0
	for i := 0; i < len(letters); i++ {
		bit, ok := attrBits[letters[i]]
		if !ok {
			return 0, vfaterr.NewWithMessage(vfaterr.EINVAL, "unknown attribute letter %q", letters[i:i+1])
		}
		attrs |= bit
	}
	return attrs, nil
}

func rmAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageErr("rm requires exactly one PATH argument")
	}
	spec, err := ParsePathSpec(c.Args().Get(0))
	if err != nil {
		return fail(err)
	}
	opened, err := openTarget(spec, false)
	if err != nil {
		return fail(err)
	}
	defer opened.Close()

	vol, err := opened.requireVolume()
	if err != nil {
		return fail(err)
	}
	if err := vol.Delete(spec.InternalPath); err != nil {
		return fail(err)
	}
	return nil
}

// attrBits maps the letters this CLI accepts in a +R/-H style toggle to
// their on-disk attribute bit.
var attrBits = map[byte]int{
	'R': geometry.AttrReadOnly,
	'H': geometry.AttrHidden,
	'S': geometry.AttrSystem,
	'A': geometry.AttrArchive,
}

func parseAttrToggle(token string) (bit int, set bool, err error) {
	if len(token) != 2 || (token[0] != '+' && token[0] != '-') {
		return 0, false, vfaterr.NewWithMessage(vfaterr.EINVAL, "malformed attribute toggle %q, want +X or -X", token)
	}
	bit, ok := attrBits[token[1]]
	if !ok {
		return 0, false, vfaterr.NewWithMessage(vfaterr.EINVAL, "unknown attribute letter %q", token[1:])
	}
	return bit, token[0] == '+', nil
}

func attrAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return usageErr("attr requires PATH followed by one or more +X/-X toggles")
	}
	spec, err := ParsePathSpec(c.Args().Get(0))
	if err != nil {
		return fail(err)
	}

	opened, err := openTarget(spec, false)
	if err != nil {
		return fail(err)
	}
	defer opened.Close()

	vol, err := opened.requireVolume()
	if err != nil {
		return fail(err)
	}

	entry, err := vol.Stat(spec.InternalPath)
	if err != nil {
		return fail(err)
	}
	attrs := entry.AttributeFlags
	for _, token := range c.Args().Slice()[1:] {
		bit, set, err := parseAttrToggle(token)
		if err != nil {
			return fail(err)
		}
		if set {
			attrs |= bit
		} else {
			attrs &^= bit
		}
	}
	if err := vol.SetAttrs(spec.InternalPath, attrs); err != nil {
		return fail(err)
	}
	return nil
}

func mkfsAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageErr("mkfs requires exactly one OUT argument")
	}
	outPath := c.Args().Get(0)
	variantSlug := c.String("variant")
	label := c.String("label")
	if variantSlug == "" {
		return usageErr("mkfs requires --variant")
	}

	geo, err := catalog.Lookup(variantSlug)
	if err != nil {
		return fail(vfaterr.NewFromError(vfaterr.EINVAL, err))
	}

	out, err := os.OpenFile(outPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fail(vfaterr.NewFromError(vfaterr.EIO, err))
	}
	defer out.Close()

	if err := out.Truncate(int64(geo.TotalSectors) * int64(geo.SectorSize)); err != nil {
		return fail(vfaterr.NewFromError(vfaterr.EIO, err))
	}

	device := blockdev.New(out, geometry.SectorSize)

	switch geo.Variant {
	case "victor-ss":
		err = volume.CreateVictorFloppy(device, volume.VictorSingleSided, label)
	case "victor-ds":
		err = volume.CreateVictorFloppy(device, volume.VictorDoubleSided, label)
	case "ibm360":
		err = volume.CreateIBMFloppy(device, volume.IBM360K, label, "VFATUTIL")
	case "ibm720":
		err = volume.CreateIBMFloppy(device, volume.IBM720K, label, "VFATUTIL")
	case "ibm12m":
		err = volume.CreateIBMFloppy(device, volume.IBM12M, label, "VFATUTIL")
	case "ibm144":
		err = volume.CreateIBMFloppy(device, volume.IBM144M, label, "VFATUTIL")
	default:
		err = vfaterr.NewWithMessage(vfaterr.EINVAL, "unsupported mkfs variant %q", variantSlug)
	}
	if err != nil {
		return fail(err)
	}
	return nil
}

func fsckAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageErr("fsck requires exactly one PATH argument")
	}
	spec, err := ParsePathSpec(c.Args().Get(0))
	if err != nil {
		return fail(err)
	}
	opened, err := openTarget(spec, true)
	if err != nil {
		return fail(err)
	}
	defer opened.Close()

	vol, err := opened.requireVolume()
	if err != nil {
		return fail(err)
	}

	report, err := vol.Verify()
	if err != nil {
		return fail(err)
	}

	for _, bc := range report.BrokenChains {
		fmt.Fprintf(c.App.Writer, "broken chain: %s: %s\n", bc.Path, bc.Cause)
	}
	for _, sm := range report.SizeMismatches {
		fmt.Fprintf(c.App.Writer, "size mismatch: %s: recorded %d, chain holds %d\n", sm.Path, sm.RecordedSize, sm.ChainByteCount)
	}
	for _, cl := range report.CrossLinkedClusters {
		fmt.Fprintf(c.App.Writer, "cross-linked cluster %d: %s\n", cl.Cluster, strings.Join(cl.Owners, ", "))
	}
	for _, oc := range report.OrphanedClusters {
		fmt.Fprintf(c.App.Writer, "orphaned cluster %d: allocated but unreferenced\n", oc)
	}
	for _, fd := range report.FATDivergences {
		fmt.Fprintf(c.App.Writer, "FAT copies disagree on cluster %d: FAT1=%#x FAT2=%#x\n", fd.Cluster, fd.FAT1Value, fd.FAT2Value)
	}

	if !report.OK() {
		return cli.Exit("filesystem check found errors", 3)
	}
	fmt.Fprintln(c.App.Writer, "filesystem check passed")
	return nil
}

func infoAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageErr("info requires exactly one PATH argument")
	}
	spec, err := ParsePathSpec(c.Args().Get(0))
	if err != nil {
		return fail(err)
	}
	opened, err := openTarget(spec, true)
	if err != nil {
		return fail(err)
	}
	defer opened.Close()

	if opened.HD != nil {
		fmt.Fprintf(c.App.Writer, "Victor hard disk image, %d partition(s)\n", opened.HD.PartitionCount())
		return nil
	}
	if opened.CPM != nil {
		fmt.Fprintln(c.App.Writer, "CP/M-86 image (read-only: list, extract)")
		return nil
	}

	vol, err := opened.requireVolume()
	if err != nil {
		return fail(err)
	}
	info, err := vol.Info()
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(c.App.Writer, "format:            %s\n", info.Format)
	fmt.Fprintf(c.App.Writer, "label:             %s\n", info.Label)
	fmt.Fprintf(c.App.Writer, "total clusters:    %d\n", info.TotalClusters)
	fmt.Fprintf(c.App.Writer, "free clusters:     %d\n", info.FreeClusters)
	fmt.Fprintf(c.App.Writer, "cluster size:      %d bytes\n", info.ClusterSize)
	fmt.Fprintf(c.App.Writer, "sectors/cluster:   %d\n", info.SectorsPerCluster)
	fmt.Fprintf(c.App.Writer, "files:             %d\n", info.FileCount)
	fmt.Fprintf(c.App.Writer, "directories:       %d\n", info.DirectoryCount)
	fmt.Fprintf(c.App.Writer, "read-only:         %v\n", info.ReadOnly)
	return nil
}
