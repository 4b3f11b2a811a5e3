package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/gorilla/securecookie"
	"github.com/jessevdk/go-flags"

	"github.com/kschaper/page-guard/config"
)

var opts struct {
	Export bool `short:"e" long:"export" description:"prefix the lines with export"`
}

// gen returns a random key of config.KeyLength hex chars.
func gen() string {
	key := securecookie.GenerateRandomKey(config.KeyLength / 2)
	return hex.EncodeToString(key)
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(2)
	}

	prefix := ""
	if opts.Export {
		prefix = "export "
	}
	fmt.Printf("%sPAGEGUARD_HASH_KEY=%s\n", prefix, gen())
	fmt.Printf("%sPAGEGUARD_BLOCK_KEY=%s\n", prefix, gen())
}
