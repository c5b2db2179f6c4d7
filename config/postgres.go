package config

import "fmt"

// PostgresConfig defines the connection to the Postgres journal.
type PostgresConfig struct {
	Host     string `mapstructure:"host" json:"host" yaml:"host"`
	Port     int    `mapstructure:"port" json:"port" yaml:"port"`
	User     string `mapstructure:"user" json:"user" yaml:"user"`
	Password string `mapstructure:"password" json:"-" yaml:"-"`
	// PasswordParam names an SSM parameter holding the password.
	PasswordParam string `mapstructure:"password_param" json:"password_param,omitempty" yaml:"password_param,omitempty"`
	DBName        string `mapstructure:"dbname" json:"dbname" yaml:"dbname"`
	SSLMode       string `mapstructure:"sslmode" json:"sslmode" yaml:"sslmode"`
	TimeZone      string `mapstructure:"timezone" json:"timezone,omitempty" yaml:"timezone,omitempty"`
	// CreateDB creates DBName through the "postgres" database on start.
	CreateDB bool `mapstructure:"create_db" json:"create_db" yaml:"create_db"`
}

// DSN returns a key/value connection string for dbname, or for the
// configured database when dbname is empty.
func (cfg PostgresConfig) DSN(dbname string) string {
	if dbname == "" {
		dbname = cfg.DBName
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, dbname, cfg.SSLMode,
	)
	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}
	return dsn
}
