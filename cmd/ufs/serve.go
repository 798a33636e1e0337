package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mit-pdos/go-journal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ufslab/ufsd/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the image over HTTP (GET/PUT/DELETE)",
	Long: `Serve the file system over HTTP. The first path component is the
service prefix; the rest is the in-filesystem path:

  PUT    /ds3/a/b/c.txt   write c.txt (creating a/ and b/ as needed)
  GET    /ds3/a/b/c.txt   read it back
  GET    /ds3/a           list a directory
  DELETE /ds3/a/b/c.txt   unlink it

Flags can also be set via UFS_* environment variables or a ufsd.yaml
config file in the working directory.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if v := viper.GetString("disk"); v != "" {
		diskPath = v
	}
	addr := viper.GetString("addr")
	prefix := viper.GetString("prefix")
	if d := viper.GetUint64("debug"); d != 0 {
		util.Debug = d
	}

	d, err := openImage()
	if err != nil {
		return err
	}
	srv := server.New(d)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		srv.WriteStats(os.Stderr)
		d.Close()
		os.Exit(0)
	}()

	mux := http.NewServeMux()
	mux.Handle("/"+prefix+"/", srv)
	mux.Handle("/"+prefix, srv)
	fmt.Fprintf(os.Stderr, "serving %s on %s (prefix /%s)\n", diskPath, addr, prefix)
	return http.ListenAndServe(addr, mux)
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("prefix", "ds3", "service prefix path component")

	viper.SetDefault("addr", ":8080")
	viper.SetDefault("prefix", "ds3")
	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("prefix", serveCmd.Flags().Lookup("prefix"))
	viper.BindPFlag("disk", rootCmd.PersistentFlags().Lookup("disk"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.SetEnvPrefix("ufs")
	viper.AutomaticEnv()
	viper.SetConfigName("ufsd")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.ReadInConfig()

	rootCmd.AddCommand(serveCmd)
}
