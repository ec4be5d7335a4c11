// The shardvault server: wires the backends, metadata store, cache and token
// resolver into a Vault and surfaces it over the REST API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli"

	"github.com/sharedcode/shardvault"
	"github.com/sharedcode/shardvault/auth"
	"github.com/sharedcode/shardvault/aws_s3"
	"github.com/sharedcode/shardvault/cassandra"
	"github.com/sharedcode/shardvault/fs"
	"github.com/sharedcode/shardvault/redis"
	"github.com/sharedcode/shardvault/restapi"
)

// appConfig is the JSON configuration file layout.
type appConfig struct {
	ListenAddress string            `json:"listen_address"`
	Vault         shardvault.Config `json:"vault"`
	Cassandra     struct {
		ClusterHosts []string `json:"cluster_hosts"`
		Keyspace     string   `json:"keyspace"`
	} `json:"cassandra"`
	Redis struct {
		Address  string `json:"address"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
}

func main() {
	shardvault.ConfigureLogging()

	app := cli.NewApp()
	app.Name = "shardvault"
	app.Usage = "erasure coded redundant file storage server"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Value:  "shardvault.json",
			Usage:  "path to the JSON configuration file",
			EnvVar: "SHARDVAULT_CONFIG",
		},
		cli.StringFlag{
			Name:   "listen, l",
			Usage:  "listen address override, e.g. localhost:8080",
			EnvVar: "SHARDVAULT_LISTEN",
		},
	}
	app.Action = func(c *cli.Context) error {
		config, err := loadConfig(c.String("config"))
		if err != nil {
			return err
		}
		if addr := c.String("listen"); addr != "" {
			config.ListenAddress = addr
		}
		return serve(config)
	}
	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func loadConfig(path string) (appConfig, error) {
	config := appConfig{
		ListenAddress: "localhost:8080",
		Vault:         shardvault.DefaultConfig(),
	}
	ba, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("reading config %s failed: %w", path, err)
	}
	if err := json.Unmarshal(ba, &config); err != nil {
		return config, fmt.Errorf("parsing config %s failed: %w", path, err)
	}
	return config, nil
}

func serve(config appConfig) error {
	if _, err := cassandra.OpenConnection(cassandra.Config{
		ClusterHosts: config.Cassandra.ClusterHosts,
		Keyspace:     config.Cassandra.Keyspace,
	}); err != nil {
		return fmt.Errorf("opening Cassandra connection failed: %w", err)
	}
	defer cassandra.CloseConnection()

	var cache shardvault.Cache
	if config.Redis.Address != "" {
		if _, err := redis.OpenConnection(redis.Options{
			Address:  config.Redis.Address,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		}); err != nil {
			return fmt.Errorf("opening Redis connection failed: %w", err)
		}
		defer redis.CloseConnection()
		cache = redis.NewClient()
	}

	backends, err := buildBackends(config.Vault.BackendLocations)
	if err != nil {
		return err
	}
	vault, err := shardvault.NewVault(config.Vault, backends, cassandra.NewShardRepository(), cache)
	if err != nil {
		return err
	}
	resolver, err := auth.NewResolver(cassandra.NewUserRepository(), cache)
	if err != nil {
		return err
	}
	fileAPI, err := restapi.NewFileAPI(vault, resolver)
	if err != nil {
		return err
	}
	if err := fileAPI.RegisterFileMethods(); err != nil {
		return err
	}

	router := gin.Default()
	for _, rm := range restapi.RestMethods() {
		switch rm.Verb {
		case restapi.GET:
			router.GET(rm.Path, rm.Handler)
		case restapi.DELETE:
			router.DELETE(rm.Path, rm.Handler)
		case restapi.POST:
			router.POST(rm.Path, rm.Handler)
		default:
			return fmt.Errorf("HTTP verb %d not supported", rm.Verb)
		}
	}
	log.Info(fmt.Sprintf("shardvault listening on %s", config.ListenAddress))
	return router.Run(config.ListenAddress)
}

// buildBackends turns the configured locations into blob backends, one per
// shard index in configuration order.
func buildBackends(locations []shardvault.BackendLocation) ([]shardvault.BlobBackend, error) {
	backends := make([]shardvault.BlobBackend, 0, len(locations))
	fileIO := fs.NewFileIO()
	for i, location := range locations {
		switch location.Kind {
		case shardvault.FileSystemBackend:
			backend, err := fs.NewBlobBackend(fileIO, location.BaseFolderPath)
			if err != nil {
				return nil, fmt.Errorf("building fs backend %d failed: %w", i, err)
			}
			backends = append(backends, backend)
		case shardvault.S3Backend:
			client := aws_s3.Connect(aws_s3.Config{
				HostEndpointUrl: location.HostEndpointUrl,
				Region:          location.Region,
				Username:        location.Username,
				Password:        location.Password,
			})
			mb, err := aws_s3.NewManageBucket(client, location.Region)
			if err != nil {
				return nil, err
			}
			if err := mb.EnsureBucket(context.Background(), location.Bucket); err != nil {
				return nil, fmt.Errorf("provisioning bucket of backend %d failed: %w", i, err)
			}
			backend, err := aws_s3.NewBlobBackend(client, location.Bucket)
			if err != nil {
				return nil, fmt.Errorf("building s3 backend %d failed: %w", i, err)
			}
			backends = append(backends, backend)
		default:
			return nil, fmt.Errorf("backend location %d has unknown kind %q", i, location.Kind)
		}
	}
	return backends, nil
}
