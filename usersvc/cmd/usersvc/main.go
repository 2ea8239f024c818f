package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdweb/usersvc"
	"github.com/ichigozero/gtdweb/usersvc/db/gorm"
	"github.com/ichigozero/gtdweb/usersvc/pkg/userservice"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
)

func main() {
	fs := flag.NewFlagSet("usersvc", flag.ExitOnError)
	var (
		databaseURL = fs.String("database.url", getEnv("DATABASE_URL", ""), "PostgreSQL URL; SQLite is used when empty")
		sqlitePath  = fs.String("sqlite.path", getEnv("SQLITE_PATH", "gtd.db"), "SQLite database file")
		bcryptCost  = fs.Int("bcrypt.cost", getEnvAsInt("BCRYPT_COST", userservice.DefaultBcryptCost), "bcrypt cost for new credentials")
		username    = fs.String("username", "", "username of the account to provision")
		password    = fs.String("password", "", "password of the account to provision")
		migrate     = fs.Bool("migrate", false, "re-hash every credential still stored in plaintext")
	)

	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	fs.Parse(os.Args[1:])

	if *username == "" && !*migrate {
		fs.Usage()
		os.Exit(2)
	}

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	var db *libgorm.DB
	var err error
	{
		if *databaseURL != "" {
			db, err = libgorm.Open(postgres.Open(*databaseURL), &libgorm.Config{})
		} else {
			db, err = libgorm.Open(sqlite.Open(*sqlitePath), &libgorm.Config{})
		}
		if err != nil {
			logger.Log("during", "Open", "err", err)
			os.Exit(1)
		}
	}

	if err := db.AutoMigrate(&usersvc.User{}); err != nil {
		logger.Log("during", "AutoMigrate", "err", err)
		os.Exit(1)
	}

	service := userservice.New(
		gorm.NewUserRepository(db),
		userservice.NewPasswordHasher(*bcryptCost),
		logger,
	)
	ctx := context.Background()

	if *username != "" {
		user, err := service.Provision(ctx, *username, *password)
		if err != nil {
			logger.Log("during", "Provision", "username", *username, "err", err)
			os.Exit(1)
		}
		logger.Log("provisioned", user.Username, "id", user.ID)
	}

	if *migrate {
		n, err := service.MigrateCredentials(ctx)
		if err != nil {
			logger.Log("during", "MigrateCredentials", "migrated", n, "err", err)
			os.Exit(1)
		}
		logger.Log("migrated", n)
	}
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
