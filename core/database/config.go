package database

// Endpoint holds the connection details for one side of a sync (source or target).
type Endpoint struct {
	// Name is a display label used in logs (e.g. "legacy-mysql").
	Name string `mapstructure:"name" default:""`
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the database user.
	User string `mapstructure:"user" default:"root"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// DBName is the database (schema) name.
	DBName string `mapstructure:"dbname" default:""`
	// File is the database file, only used by the sqlite engine.
	File string `mapstructure:"file" default:""`
}

// Config holds configuration for the source and target database connections.
type Config struct {
	// Engine is the database engine shared by both sides (sqlite, mysql, mariadb, postgres).
	Engine string `mapstructure:"engine" default:"sqlite"`
	// LogSQL logs every statement with its parameters, row count and duration.
	LogSQL bool `mapstructure:"log_sql" default:"false"`
	// TimeoutSeconds bounds connection setup and the initial ping.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// Source is the database rows are read from.
	Source Endpoint `mapstructure:"source"`
	// Target is the database brought into alignment with Source.
	Target Endpoint `mapstructure:"target"`
}
