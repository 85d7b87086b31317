package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCharnyshevich/voxel-server/pkg/gamedata"
)

func main() {
	var (
		src = flag.String("src", "", "go-getter address of the data pack, e.g. git::https://example.com/pack.git//blocks")
		out = flag.String("o", "./gamedata", "output dir path")
	)
	flag.Parse()

	if *src == "" {
		panic("source address required")
	}

	if *out == "" {
		panic("output dir path required")
	}

	if err := os.RemoveAll(*out); err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Default().Printf("start downloading game data %s", *src)

	if err := gamedata.Fetch(ctx, *src, *out); err != nil {
		panic(err)
	}

	gd, err := gamedata.Load(*out)
	if err != nil {
		panic(err)
	}

	log.Default().Printf("done downloading game data %s: %d blocks", *out, gd.Blocks.Len())
}
