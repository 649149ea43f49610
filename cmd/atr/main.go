// atr works with Atari DOS 2.0S/2.5 files inside ATR disk images.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atarisk/atr/dos2"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "atr",
		Usage: "Read and write Atari DOS 2 diskette images",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "image",
				Aliases:  []string{"f"},
				Usage:    "path to the .atr disk image",
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List the files on the diskette",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "l", Usage: "long listing with sizes and load addresses"},
					&cli.BoolFlag{Name: "a", Usage: "include system (.sys) files"},
					&cli.BoolFlag{Name: "1", Usage: "one name per line"},
				},
				Action: listFiles,
			},
			{
				Name:      "cat",
				Usage:     "Type a file to standard output",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "e", Usage: "convert ATASCII line endings (0x9b) to newlines"},
				},
				Action: catFile,
			},
			{
				Name:      "get",
				Usage:     "Copy a file from the diskette to the local system",
				ArgsUsage: "NAME [LOCAL-NAME]",
				Action:    getFile,
			},
			{
				Name:      "put",
				Usage:     "Copy a local file onto the diskette",
				ArgsUsage: "LOCAL-NAME [NAME]",
				Action:    putFile,
			},
			{
				Name:      "rm",
				Usage:     "Delete a file",
				ArgsUsage: "NAME",
				Action:    removeFile,
			},
			{
				Name:      "free",
				Usage:     "Print the amount of free space",
				ArgsUsage: " ",
				Action:    printFree,
			},
			{
				Name:      "check",
				Usage:     "Check the file system for inconsistencies",
				ArgsUsage: " ",
				Action:    checkImage,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

// withVolume opens the image named by the global flag, runs fn, and closes
// the image file on every path out.
func withVolume(context *cli.Context, fn func(volume *dos2.Volume) error) error {
	file, err := os.OpenFile(context.String("image"), os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer file.Close()

	volume, err := dos2.Open(file)
	if err != nil {
		return err
	}
	return fn(volume)
}

func requireName(context *cli.Context) (string, error) {
	name := context.Args().First()
	if name == "" {
		return "", fmt.Errorf("missing file name")
	}
	return name, nil
}

func listFiles(context *cli.Context) error {
	return withVolume(context, func(volume *dos2.Volume) error {
		files, err := volume.List()
		if err != nil {
			return err
		}

		shown := files[:0:0]
		for _, file := range files {
			if file.System && !context.Bool("a") {
				continue
			}
			shown = append(shown, file)
		}

		switch {
		case context.Bool("l"):
			printLongListing(volume, shown)
		case context.Bool("1"):
			for _, file := range shown {
				fmt.Println(file.Name)
			}
		default:
			printColumns(shown)
		}
		return nil
	})
}

func printLongListing(volume *dos2.Volume, files []dos2.FileInfo) {
	totalSectors := uint(0)
	totalBytes := 0
	for _, file := range files {
		flags := fmt.Sprintf("-r%c-%c",
			pick(file.Locked, '-', 'w'),
			pick(file.System, 's', '-'))

		extra := ""
		if file.Binary != nil {
			extra = fmt.Sprintf(" (load_start=$%x load_end=$%x",
				file.Binary.LoadStart, file.Binary.LoadEnd)
			if file.Binary.Init != -1 {
				extra += fmt.Sprintf(" init=$%x", file.Binary.Init)
			}
			if file.Binary.Run != -1 {
				extra += fmt.Sprintf(" run=$%x", file.Binary.Run)
			}
			extra += ")"
		}

		fmt.Printf("%s %6d (%3d) %-13s%s\n", flags, file.Size, file.SectorCount, file.Name, extra)
		totalSectors += file.SectorCount
		totalBytes += file.Size
	}

	fmt.Printf("\n%d entries\n%d sectors, %d bytes\n", len(files), totalSectors, totalBytes)
	free, err := volume.FreeSectorCount()
	if err == nil {
		fmt.Printf("%d free sectors, %d free bytes\n", free, free*dos2.SectorSize)
	}
}

func printColumns(files []dos2.FileInfo) {
	const columns = 6
	rows := (len(files) + columns - 1) / columns
	for row := 0; row < rows; row++ {
		line := ""
		for column := 0; column < columns; column++ {
			i := row + column*rows
			if i < len(files) {
				line += fmt.Sprintf("%-12s  ", files[i].Name)
			}
		}
		fmt.Println(strings.TrimRight(line, " "))
	}
}

func pick(condition bool, ifTrue, ifFalse byte) byte {
	if condition {
		return ifTrue
	}
	return ifFalse
}

func catFile(context *cli.Context) error {
	name, err := requireName(context)
	if err != nil {
		return err
	}
	return withVolume(context, func(volume *dos2.Volume) error {
		reader, err := volume.OpenFile(name, context.Bool("e"))
		if err != nil {
			return err
		}
		_, err = io.Copy(os.Stdout, reader)
		return err
	})
}

func getFile(context *cli.Context) error {
	name, err := requireName(context)
	if err != nil {
		return err
	}
	localName := context.Args().Get(1)
	if localName == "" {
		localName = name
	}

	return withVolume(context, func(volume *dos2.Volume) error {
		reader, err := volume.OpenFile(name, false)
		if err != nil {
			return err
		}

		local, err := os.Create(localName)
		if err != nil {
			return err
		}
		_, err = io.Copy(local, reader)
		closeErr := local.Close()
		if err != nil {
			return err
		}
		return closeErr
	})
}

func putFile(context *cli.Context) error {
	localName, err := requireName(context)
	if err != nil {
		return err
	}
	name := context.Args().Get(1)
	if name == "" {
		name = filepath.Base(localName)
	}

	return withVolume(context, func(volume *dos2.Volume) error {
		content, err := os.ReadFile(localName)
		if err != nil {
			return err
		}
		return volume.WriteFile(name, content)
	})
}

func removeFile(context *cli.Context) error {
	name, err := requireName(context)
	if err != nil {
		return err
	}
	return withVolume(context, func(volume *dos2.Volume) error {
		return volume.Remove(name)
	})
}

func printFree(context *cli.Context) error {
	return withVolume(context, func(volume *dos2.Volume) error {
		free, err := volume.FreeSectorCount()
		if err != nil {
			return err
		}
		fmt.Printf("%d free sectors, %d free bytes\n", free, free*dos2.SectorSize)
		return nil
	})
}

func checkImage(context *cli.Context) error {
	return withVolume(context, func(volume *dos2.Volume) error {
		report, err := volume.Check()
		if err != nil {
			return err
		}

		for _, file := range report.Files {
			fmt.Printf("checked %s: %d sectors\n", file.Name, file.WalkedSectors)
		}
		fmt.Printf("%d sectors in use, %d sectors free\n", report.UsedSectors, report.FreeSectors)

		if len(report.Findings) == 0 {
			fmt.Println("no inconsistencies found")
			return nil
		}
		for _, finding := range report.Findings {
			fmt.Printf("  ** %s\n", finding.Message)
		}
		return fmt.Errorf("found %d inconsistencies", len(report.Findings))
	})
}
