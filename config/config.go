package config

import (
	"os"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

type SystemConfig struct {
	Workdir  string `yaml:"workdir"`
	Location string `yaml:"location"`
}

type LoggerConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
	Secret string `yaml:"secret"`
}

type AdminConfig struct {
	// Password may be plain text or a bcrypt hash ($2a$... / $2b$...).
	Password string `yaml:"password"`
}

type SyncConfig struct {
	// IntervalSecs between background catalog pulls. 0 means the default (120s).
	IntervalSecs int `yaml:"interval_secs"`
}

type DatabaseConfig struct {
	// DSN for the single-row catalog table (Supabase/Postgres). Empty disables
	// the table backend.
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
	Debug bool   `yaml:"debug"`
}

type DriveConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	// APIKey enables unauthenticated read-only access to the catalog file.
	APIKey   string `yaml:"api_key"`
	FolderID string `yaml:"folder_id"`
	FileName string `yaml:"file_name"`

	// Endpoint overrides, normally left empty.
	APIBase    string `yaml:"api_base"`
	UploadBase string `yaml:"upload_base"`
	TokenURL   string `yaml:"token_url"`
}

type CloudinaryConfig struct {
	CloudName    string `yaml:"cloud_name"`
	UploadPreset string `yaml:"upload_preset"`
	UploadBase   string `yaml:"upload_base"`
}

type AppConfig struct {
	System     SystemConfig     `yaml:"system"`
	Logger     LoggerConfig     `yaml:"logger"`
	Web        WebConfig        `yaml:"web"`
	Admin      AdminConfig      `yaml:"admin"`
	Sync       SyncConfig       `yaml:"sync"`
	Database   DatabaseConfig   `yaml:"database"`
	Drive      DriveConfig      `yaml:"drive"`
	Cloudinary CloudinaryConfig `yaml:"cloudinary"`
}

const (
	BackendMemory = "memory"
	BackendTable  = "table"
	BackendDrive  = "drive"
)

// BackendType selects the catalog backend from credential presence: Drive
// credentials win, then a database DSN, otherwise the in-memory demo backend.
func (c *AppConfig) BackendType() string {
	if c.Drive.ClientID != "" || c.Drive.APIKey != "" {
		return BackendDrive
	}
	if c.Database.DSN != "" {
		return BackendTable
	}
	return BackendMemory
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		System: SystemConfig{
			Workdir:  "/var/catalogd",
			Location: "America/Bogota",
		},
		Logger: LoggerConfig{
			Mode:       "development",
			FileEnable: false,
			Filename:   "/var/catalogd/catalogd.log",
		},
		Web: WebConfig{
			Listen: ":1829",
			Secret: "catalogd-secret",
		},
		Admin: AdminConfig{
			Password: "admin",
		},
		Sync: SyncConfig{
			IntervalSecs: 120,
		},
		Database: DatabaseConfig{
			Table: "catalog",
		},
		Drive: DriveConfig{
			FileName: "data.json",
		},
	}
}

// LoadConfig reads the YAML file when present and applies environment
// overrides on top of the defaults. A missing file is not an error.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	cfg.applyEnv()
	if cfg.Sync.IntervalSecs <= 0 {
		cfg.Sync.IntervalSecs = 120
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = "catalog"
	}
	if cfg.Drive.FileName == "" {
		cfg.Drive.FileName = "data.json"
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() {
	setEnvString(&c.System.Workdir, "CATALOGD_WORKDIR")
	setEnvString(&c.System.Location, "CATALOGD_LOCATION")
	setEnvString(&c.Logger.Mode, "CATALOGD_LOGGER_MODE")
	setEnvBool(&c.Logger.FileEnable, "CATALOGD_LOGGER_FILE_ENABLE")
	setEnvString(&c.Logger.Filename, "CATALOGD_LOGGER_FILENAME")
	setEnvString(&c.Web.Listen, "CATALOGD_WEB_LISTEN")
	setEnvString(&c.Web.Secret, "CATALOGD_WEB_SECRET")
	setEnvString(&c.Admin.Password, "CATALOGD_ADMIN_PASSWORD")
	setEnvInt(&c.Sync.IntervalSecs, "CATALOGD_SYNC_INTERVAL_SECS")
	setEnvString(&c.Database.DSN, "CATALOGD_DATABASE_DSN")
	setEnvString(&c.Database.Table, "CATALOGD_DATABASE_TABLE")
	setEnvString(&c.Drive.ClientID, "CATALOGD_DRIVE_CLIENT_ID")
	setEnvString(&c.Drive.ClientSecret, "CATALOGD_DRIVE_CLIENT_SECRET")
	setEnvString(&c.Drive.RefreshToken, "CATALOGD_DRIVE_REFRESH_TOKEN")
	setEnvString(&c.Drive.APIKey, "CATALOGD_DRIVE_API_KEY")
	setEnvString(&c.Drive.FolderID, "CATALOGD_DRIVE_FOLDER_ID")
	setEnvString(&c.Drive.FileName, "CATALOGD_DRIVE_FILE_NAME")
	setEnvString(&c.Cloudinary.CloudName, "CATALOGD_CLOUDINARY_CLOUD_NAME")
	setEnvString(&c.Cloudinary.UploadPreset, "CATALOGD_CLOUDINARY_UPLOAD_PRESET")
}

func setEnvString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setEnvBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = cast.ToBool(v)
	}
}

func setEnvInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = cast.ToInt(v)
	}
}
