package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

var app = &cli.Command{
	Name:      "gistfs",
	Usage:     "mount the gists of GitHub users as a read-only file system",
	ArgsUsage: "<mountpoint>",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "users",
			Aliases: []string{"u"},
			Usage:   "a comma-separated list of additional users whose gists should be made available",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "configuration file",
			Value: defaultConfigPath(),
		},
		&cli.StringFlag{
			Name:  "listen",
			Usage: "also serve the file system over 9P on this address",
		},
		&cli.BoolFlag{
			Name:  "tree",
			Usage: "print the loaded tree before mounting",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "log file system requests",
		},
	},
	Action: run,
}

func run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return cli.ShowAppHelp(c)
	}
	mountpoint := c.Args().First()

	config, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if addr := c.String("listen"); addr != "" {
		config.ListenAddress = addr
	}

	client := newAPIClient(config)
	usernames := c.StringSlice("users")
	primary := config.Username
	if primary == "" && config.Token != "" {
		if primary, err = client.authenticatedUser(ctx); err != nil {
			log.Printf("could not identify the authenticated user: %v", err)
		}
	}
	if primary != "" {
		usernames = append([]string{primary}, usernames...)
	}
	if len(dedupUsernames(usernames)) == 0 {
		return errors.New("no users: set username in the configuration or pass --users")
	}

	gfs := newGistFS(ctx, client, client, usernames)
	log.Printf("loaded %s", color.HiYellowString("%d users", len(gfs.users)))
	if c.Bool("tree") {
		fmt.Print(renderTree(gfs, mountpoint))
	}

	if config.ListenAddress != "" {
		go func() {
			log.Printf("serving 9P on %s", color.HiGreenString(config.ListenAddress))
			if err := serveNinep(gfs, config.ListenAddress, c.Bool("debug")); err != nil {
				log.Printf("9P listener: %v", err)
			}
		}()
	}

	return mountAndServe(gfs, mountpoint, c.Bool("debug"))
}

func main() {
	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("%+v", err)
	}
}
