package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"path"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"yplayer/src/handler/web"
	"yplayer/src/ingest"
	"yplayer/src/insight"
	"yplayer/src/jukebox"
	"yplayer/src/persist"
	"yplayer/src/player"
	"yplayer/src/player/beep"
	"yplayer/src/player/mpd"
	"yplayer/src/playlist"
	"yplayer/src/util"
)

const confFile = "config.yaml"

var (
	build       = "%BUILD%"
	version     = "%VERSION%"
	versionDate = "%VERSION_DATE%"
)

type config struct {
	Address string `yaml:"bind"`
	URLRoot string `yaml:"url_root"`

	StorageDir string `yaml:"storage_dir"`

	Volume float64 `yaml:"volume"`

	Device string `yaml:"device"`
	MPD    *struct {
		Network  string  `yaml:"network"`
		Address  string  `yaml:"address"`
		Password *string `yaml:"password"`
	} `yaml:"mpd"`
}

func (conf *config) Validate() (errs []error) {
	if conf.Address == "" {
		errs = append(errs, fmt.Errorf("config: `bind` is required"))
	}
	switch conf.Device {
	case "", "local":
	case "mpd":
		if conf.MPD == nil {
			errs = append(errs, fmt.Errorf("config: device is %q but no `mpd` section is present", conf.Device))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown device %q", conf.Device))
	}
	if conf.Volume < 0 || conf.Volume > 1 {
		errs = append(errs, fmt.Errorf("config: `volume` must be in [0, 1]"))
	}
	return
}

func LoadConfig(filename string) (*config, error) {
	fd, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	d := yaml.NewDecoder(fd)
	d.KnownFields(true)
	conf := config{Volume: 1.0, URLRoot: "/"}
	if err := d.Decode(&conf); err != nil {
		return nil, err
	}

	return &conf, nil
}

func main() {
	defaultLogLevel := "warn"
	if build == "debug" {
		defaultLogLevel = "debug"
	}

	configFile := flag.String("conf", confFile, "Path to the configuration file")
	printVersion := flag.Bool("version", false, "Print version information and exit")
	logLevel := flag.String("log", defaultLogLevel, "Sets the log level. [debug, info, warn, error]")
	flag.Parse()

	if ll, err := log.ParseLevel(*logLevel); err != nil {
		log.Fatalf("Could not parse log level: %v", err)
	} else {
		log.SetLevel(ll)
	}
	log.SetReportCaller(true)

	if *printVersion {
		fmt.Printf("Version: %v (%v)\n", version, versionDate)
		fmt.Printf("Build: %v\n", build)
		return
	}

	log.Infof("Version: %v (%v)\n", version, build)
	config, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	if errs := config.Validate(); len(errs) > 0 {
		log.Fatalf("Could not load config: %v", errs)
	}

	storeDir := strings.Replace(config.StorageDir, "~", os.Getenv("HOME"), 1)
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		log.Fatalf("Unable to create storage dir: %v", err)
	}
	log.Infof("Using %q for storage", storeDir)

	db, err := persist.Open(path.Join(storeDir, "yplayer.db"))
	if err != nil {
		log.Fatalf("Unable to open the playlist database: %v", err)
	}
	defer db.Close()

	urlRoot, err := util.DetermineFullURLRoot(config.URLRoot, config.Address)
	if err != nil {
		log.Fatalf("Could not determine the URL root: %v", err)
	}

	device, err := connectToDevice(config)
	if err != nil {
		log.Fatal(err)
	}
	defer device.Close()

	store := playlist.NewStore()
	transport := player.NewTransport(device, store)
	transport.SetVolume(config.Volume)

	blobs := ingest.NewBlobServer(urlRoot)
	pipeline := ingest.NewPipeline(blobs, store, transport)
	jukebox := jukebox.NewJukebox(store, transport, db, pipeline)

	ctx := context.Background()
	go transport.Run(ctx)
	go jukebox.Run(ctx)
	jukebox.Hydrate()

	service := web.New(build, jukebox, blobs, insight.NewClient())

	if build == "debug" {
		service.Get("/debug/pprof/*", pprof.Index)
	}
	log.Infof("Now accepting HTTP connections on %v", config.Address)
	server := &http.Server{
		Addr:           config.Address,
		Handler:        service,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	log.Fatalf("Error running webserver: %v", server.ListenAndServe())
}

func connectToDevice(config *config) (player.Device, error) {
	switch config.Device {
	case "", "local":
		device, err := beep.NewDevice()
		if err != nil {
			return nil, fmt.Errorf("unable to initialize the local audio device: %v", err)
		}
		return device, nil
	case "mpd":
		device, err := mpd.NewDevice(config.MPD.Network, config.MPD.Address, config.MPD.Password)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to MPD: %v", err)
		}
		return device, nil
	}
	panic("unreachable")
}
