package main

import (
	"flag"
	_log "log"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"

	"github.com/Cristobalca/shield-browser-app/core"
	"github.com/Cristobalca/shield-browser-app/database"
	"github.com/Cristobalca/shield-browser-app/log"
)

var debug_log = flag.Bool("debug", false, "Enable debug output")
var cfg_dir = flag.String("c", "", "Configuration directory path")
var api_port = flag.Int("api-port", 0, "Override the core API port")
var version_flag = flag.Bool("v", false, "Show version")

func joinPath(base_path string, rel_path string) string {
	var ret string
	if filepath.IsAbs(rel_path) {
		ret = rel_path
	} else {
		ret = filepath.Join(base_path, rel_path)
	}
	return ret
}

func main() {
	flag.Parse()

	if *version_flag == true {
		log.Info("version: %s", core.VERSION)
		return
	}

	core.Banner()

	_log.SetOutput(log.NullLogger().Writer())

	log.DebugEnable(*debug_log)
	if *debug_log {
		log.Info("debug output enabled")
	}

	if *cfg_dir == "" {
		usr, err := user.Current()
		if err != nil {
			log.Fatal("%v", err)
			return
		}
		*cfg_dir = filepath.Join(usr.HomeDir, ".shield-browser")
	}

	log.Info("loading configuration from: %s", *cfg_dir)

	err := os.MkdirAll(*cfg_dir, os.FileMode(0700))
	if err != nil {
		log.Fatal("%v", err)
		return
	}

	cfg, err := core.NewConfig(*cfg_dir, "")
	if err != nil {
		log.Fatal("config: %v", err)
		return
	}
	if *api_port > 0 {
		cfg.SetApiPort(*api_port)
	}

	db, err := database.NewDatabase(joinPath(*cfg_dir, "data.db"))
	if err != nil {
		log.Fatal("database: %v", err)
		return
	}
	defer db.Close()

	proxies := core.NewProxyManager(db, cfg)
	identities := core.NewIdentitySynthesizer(cfg)

	api := core.NewCoreAPI(cfg, identities, proxies)
	go func() {
		if err := api.Start(); err != nil {
			log.Fatal("api: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	db.Flush()
}
