package core

import (
	"fmt"

	"github.com/fatih/color"
)

const VERSION = "1.2.0"

func putAsciiArt(s string) {
	for _, c := range s {
		d := string(c)
		switch d {
		case "#":
			color.Set(color.BgRed)
			d = " "
		case "@":
			color.Set(color.BgBlack)
			d = " "
		case ".":
			color.Set(color.BgWhite)
			d = " "
		case " ":
			color.Unset()
		}
		fmt.Print(d)
	}
	color.Unset()
}

func printLogo(s string) {
	defer color.Unset()
	color.Set(color.FgHiRed)
	fmt.Print(s)
}

func printUpdateName() {
	nameClr := color.New(color.FgHiRed)
	txt := nameClr.Sprintf("          shield browser core")
	fmt.Fprintf(color.Output, "%s", txt)
}

func printOneliner1() {
	handleClr := color.New(color.FgHiBlue)
	versionClr := color.New(color.FgGreen)
	textClr := color.New(color.FgHiBlack)
	spc := "                  "
	txt := textClr.Sprintf("identity synthesis & proxy lifecycle ") + handleClr.Sprintf("engine") + spc + textClr.Sprintf("version ") + versionClr.Sprintf("%s", VERSION)
	fmt.Fprintf(color.Output, "%s", txt)
}

func Banner() {
	fmt.Println()
	printLogo("  ___ _    _     _    _   \n")
	printLogo(" / __| |_ (_)___| |__| |  \n")
	printLogo(" \\__ \\ ' \\| / -_) / _` |  \n")
	printLogo(" |___/_||_|_\\___|_\\__,_|  \n")
	fmt.Println()
	printUpdateName()
	fmt.Println()
	printOneliner1()
	fmt.Println()
	fmt.Println()
}
