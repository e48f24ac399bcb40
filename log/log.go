package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

const (
	DEBUG = iota
	INFO
	IMPORTANT
	WARNING
	ERROR
	FATAL
	SUCCESS
)

var stdout = color.Output
var g_rl io.Writer = nil
var debug_output = true
var mtx_log *sync.Mutex = &sync.Mutex{}

var verbose_level = INFO

func DebugEnable(enable bool) {
	debug_output = enable
	if enable {
		verbose_level = DEBUG
	} else {
		verbose_level = INFO
	}
}

func SetVerbosityLevel(level int) {
	if level >= DEBUG && level <= FATAL {
		verbose_level = level
	}
}

func SetOutput(o io.Writer) {
	g_rl = o
}

func GetOutput() io.Writer {
	return g_rl
}

func NullLogger() *stdlog.Logger {
	return stdlog.New(io.Discard, "", 0)
}

func Debug(format string, args ...interface{}) {
	mtx_log.Lock()
	defer mtx_log.Unlock()

	if verbose_level <= DEBUG {
		fmt.Fprint(stdout, format_msg(DEBUG, format+"\n", args...))
	}
}

func Info(format string, args ...interface{}) {
	mtx_log.Lock()
	defer mtx_log.Unlock()

	if verbose_level <= INFO {
		fmt.Fprint(stdout, format_msg(INFO, format+"\n", args...))
	}
}

func Important(format string, args ...interface{}) {
	mtx_log.Lock()
	defer mtx_log.Unlock()

	if verbose_level <= IMPORTANT {
		fmt.Fprint(stdout, format_msg(IMPORTANT, format+"\n", args...))
	}
}

func Warning(format string, args ...interface{}) {
	mtx_log.Lock()
	defer mtx_log.Unlock()

	if verbose_level <= WARNING {
		fmt.Fprint(stdout, format_msg(WARNING, format+"\n", args...))
	}
}

func Error(format string, args ...interface{}) {
	mtx_log.Lock()
	defer mtx_log.Unlock()

	if verbose_level <= ERROR {
		fmt.Fprint(stdout, format_msg(ERROR, format+"\n", args...))
	}
}

func Fatal(format string, args ...interface{}) {
	mtx_log.Lock()
	defer mtx_log.Unlock()

	if verbose_level <= FATAL {
		fmt.Fprint(stdout, format_msg(FATAL, format+"\n", args...))
	}
	os.Exit(1)
}

func Success(format string, args ...interface{}) {
	mtx_log.Lock()
	defer mtx_log.Unlock()

	fmt.Fprint(stdout, format_msg(SUCCESS, format+"\n", args...))
}

func Printf(format string, args ...interface{}) {
	mtx_log.Lock()
	defer mtx_log.Unlock()

	fmt.Fprintf(stdout, format, args...)
}

func format_msg(lvl int, format string, args ...interface{}) string {
	t := time.Now()
	var sign, msg *color.Color
	switch lvl {
	case DEBUG:
		sign = color.New(color.FgBlack, color.BgHiBlack)
		msg = color.New(color.Reset, color.FgHiBlack)
	case INFO:
		sign = color.New(color.FgGreen, color.BgBlack)
		msg = color.New(color.Reset)
	case IMPORTANT:
		sign = color.New(color.FgWhite, color.BgHiBlue)
		msg = color.New(color.Reset)
	case WARNING:
		sign = color.New(color.FgBlack, color.BgYellow)
		msg = color.New(color.Reset)
	case ERROR:
		sign = color.New(color.FgWhite, color.BgRed)
		msg = color.New(color.Reset, color.FgRed)
	case FATAL:
		sign = color.New(color.FgBlack, color.BgRed)
		msg = color.New(color.Reset, color.FgRed, color.Bold)
	case SUCCESS:
		sign = color.New(color.FgWhite, color.BgGreen)
		msg = color.New(color.Reset, color.FgGreen)
	}
	time_clr := color.New(color.Reset)
	return "\r[" + time_clr.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second()) + "] [" + sign.Sprintf("%s", sign_of(lvl)) + "] " + msg.Sprintf(format, args...)
}

func sign_of(lvl int) string {
	switch lvl {
	case DEBUG:
		return "dbg"
	case INFO:
		return "inf"
	case IMPORTANT:
		return "imp"
	case WARNING:
		return "war"
	case ERROR:
		return "err"
	case FATAL:
		return "!!!"
	case SUCCESS:
		return "+++"
	}
	return "???"
}
