package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/giuseppe/crun/pkg/cgroups"
	"github.com/giuseppe/crun/pkg/lock"
	"github.com/giuseppe/crun/pkg/seccompnotify"
)

var debug bool

var debugFlag = cli.BoolFlag{
	Name:        "debug",
	Usage:       "turn on debug logs",
	Destination: &debug,
	EnvVar:      "CRUN_CGROUP_DEBUG",
}

func main() {
	app := cli.NewApp()
	app.Name = "crun-cgroup"
	app.Usage = "inspect and drive the cgroup lifecycle engine and seccomp notify plugin host"
	app.Version = "0.1.0"
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("%s version %s\n", c.App.Name, c.App.Version)
		fmt.Printf("go version %s\n", runtime.Version())
	}
	app.Flags = []cli.Flag{debugFlag}
	app.Before = func(c *cli.Context) error {
		if debug {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	}
	app.Commands = []cli.Command{
		detectCommand,
		moveCommand,
		psCommand,
		destroyCommand,
		chownDelegateCommand,
		symlinksCommand,
		seccompServeCommand,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

var detectCommand = cli.Command{
	Name:      "detect",
	Usage:     "report the cgroup regime in effect (unified, legacy, or hybrid)",
	ArgsUsage: " ",
	Action: func(c *cli.Context) error {
		fs, err := cgroups.NewFS(cgroups.DefaultRoot)
		if err != nil {
			return err
		}
		mode, err := fs.Mode()
		if err != nil {
			return err
		}
		fmt.Println(mode)
		return nil
	},
}

var moveCommand = cli.Command{
	Name:      "move",
	Usage:     "move a PID into the cgroup at PATH, per controller for the legacy regime",
	ArgsUsage: "PID PATH [SUBSYSTEM]",
	Action: func(c *cli.Context) error {
		if c.NArg() < 2 {
			return cli.NewExitError("move requires PID and PATH", 1)
		}
		var pid int
		if _, err := fmt.Sscanf(c.Args().Get(0), "%d", &pid); err != nil {
			return cli.NewExitError("invalid PID: "+c.Args().Get(0), 1)
		}
		path := cgroups.CgroupPath(c.Args().Get(1))
		subsystem := c.Args().Get(2)

		fs, err := cgroups.NewFS(cgroups.DefaultRoot)
		if err != nil {
			return err
		}
		return fs.Move(pid, subsystem, path)
	},
}

var psCommand = cli.Command{
	Name:      "ps",
	Usage:     "list PIDs under the cgroup at PATH",
	ArgsUsage: "PATH",
	Flags: []cli.Flag{
		cli.BoolFlag{Name: "recursive, r", Usage: "include descendant cgroups"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.NewExitError("ps requires PATH", 1)
		}
		path := cgroups.CgroupPath(c.Args().Get(0))

		fs, err := cgroups.NewFS(cgroups.DefaultRoot)
		if err != nil {
			return err
		}
		pids, err := fs.PIDsFromPath(path, c.Bool("recursive"))
		if err != nil {
			return err
		}
		for _, pid := range pids {
			fmt.Println(pid)
		}
		return nil
	},
}

var destroyCommand = cli.Command{
	Name:      "destroy",
	Usage:     "recursively tear down the cgroup tree at PATH, tolerating transient EBUSY",
	ArgsUsage: "PATH",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.NewExitError("destroy requires PATH", 1)
		}
		path := cgroups.CgroupPath(c.Args().Get(0))

		l := lock.NewPathLock(string(path), "")
		if err := l.Acquire(); err != nil {
			return err
		}
		defer l.Release()

		fs, err := cgroups.NewFS(cgroups.DefaultRoot)
		if err != nil {
			return err
		}
		return fs.Destroy(path, cgroups.DestroyOptions{})
	},
}

var chownDelegateCommand = cli.Command{
	Name:      "chown-delegate",
	Usage:     "chown the cgroup at PATH and the files listed in /sys/kernel/cgroup/delegate to UID:GID for rootless delegation",
	ArgsUsage: "PATH UID GID",
	Action: func(c *cli.Context) error {
		if c.NArg() < 3 {
			return cli.NewExitError("chown-delegate requires PATH UID GID", 1)
		}
		path := cgroups.CgroupPath(c.Args().Get(0))
		var uid, gid int
		if _, err := fmt.Sscanf(c.Args().Get(1), "%d", &uid); err != nil {
			return cli.NewExitError("invalid UID: "+c.Args().Get(1), 1)
		}
		if _, err := fmt.Sscanf(c.Args().Get(2), "%d", &gid); err != nil {
			return cli.NewExitError("invalid GID: "+c.Args().Get(2), 1)
		}

		fs, err := cgroups.NewFS(cgroups.DefaultRoot)
		if err != nil {
			return err
		}
		return fs.ChownDelegated(path, uid, gid)
	},
}

var symlinksCommand = cli.Command{
	Name:      "symlinks",
	Usage:     "install co-mounted legacy controller symlinks under DIR",
	ArgsUsage: "DIR",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.NewExitError("symlinks requires DIR", 1)
		}
		dir, err := os.Open(c.Args().Get(0))
		if err != nil {
			return err
		}
		defer dir.Close()
		return cgroups.CreateSymlinks(dir)
	},
}

var seccompServeCommand = cli.Command{
	Name:      "seccomp-serve",
	Usage:     "load a seccomp-notify plugin chain and serve notifications from FD until terminated",
	ArgsUsage: "FD PLUGIN [PLUGIN...]",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "runtime-root", Usage: "runtime root path passed to plugin start()"},
		cli.StringFlag{Name: "name", Usage: "container name passed to plugin start()"},
		cli.StringFlag{Name: "bundle", Usage: "bundle path passed to plugin start()"},
		cli.StringFlag{Name: "config", Usage: "OCI config.json path passed to plugin start()"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 2 {
			return cli.NewExitError("seccomp-serve requires FD and at least one PLUGIN", 1)
		}
		var fd int
		if _, err := fmt.Sscanf(c.Args().Get(0), "%d", &fd); err != nil {
			return cli.NewExitError("invalid FD: "+c.Args().Get(0), 1)
		}
		plugins := []string(c.Args()[1:])

		conf := seccompnotify.Config{
			RuntimeRootPath: c.String("runtime-root"),
			Name:            c.String("name"),
			BundlePath:      c.String("bundle"),
			OCIConfigPath:   c.String("config"),
		}

		host, err := seccompnotify.Load(plugins, conf)
		if err != nil {
			return err
		}
		defer host.Close()

		logrus.WithField("count", host.PluginCount()).Info("seccomp notify plugin chain loaded")

		// SIGINT/SIGTERM cancel ctx, which Serve checks before each receive,
		// so host.Close() still runs via the defer above. The signals stay
		// registered until the deferred stop() runs, so a second signal
		// before then does not terminate the process.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := seccompnotify.Serve(ctx, host, fd); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}
