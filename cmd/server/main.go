package main

import (
	"github.com/pulsefeed/pulsefeed-go/server"
	"github.com/pulsefeed/pulsefeed-go/utils/dotenv"
	. "github.com/pulsefeed/pulsefeed-go/utils/log"
)

func init() {
	InitLogger("pulsefeed-server")
}

func main() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		Log.WithError(err).Warn("no .env file loaded")
	}

	db, err := server.OpenDatabase()
	if err != nil {
		Log.Fatalf("open database: %v", err)
	}

	srv, err := server.NewServer(db)
	if err != nil {
		Log.Fatalf("initialize server: %v", err)
	}
	defer srv.Close()

	Log.Info("api server starts up")
	if err := srv.Run(); err != nil {
		Log.Fatalf("server exited: %v", err)
	}
}
