package config

import (
	"time"

	"github.com/spf13/viper"
)

// Every key needs a default so that BRICKS_* variables are seen by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("grpc.addr", ":50051")

	v.SetDefault("mysql.dsn", "root:root@tcp(localhost:3306)/bricks?parseTime=true")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 25)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)

	v.SetDefault("views.workers", 10)
	v.SetDefault("views.queue_size", 10000)
	v.SetDefault("views.dedupe_ttl", 24*time.Hour)

	v.SetDefault("engine.fetch_concurrency", 8)
	v.SetDefault("engine.full_scan_limit", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("shutdown_timeout", 5*time.Second)
}
