package blob

import (
	"context"
	"fmt"
	"os"
)

// Settings selects and configures a blob driver.
type Settings struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// SettingsFromEnv reads blob settings from the environment:
//
//	PLATEDESIGN_BLOB_DRIVER: fs|s3|memory (default fs)
//	PLATEDESIGN_BLOB_FS_ROOT: directory root when driver=fs (default ./plates)
//	PLATEDESIGN_BLOB_S3_BUCKET / _REGION / _ENDPOINT / _PATH_STYLE for driver=s3
func SettingsFromEnv() Settings {
	return Settings{
		Driver: Driver(os.Getenv("PLATEDESIGN_BLOB_DRIVER")),
		FSRoot: os.Getenv("PLATEDESIGN_BLOB_FS_ROOT"),
		S3:     S3ConfigFromEnv(),
	}
}

// Open constructs the Store described by s.
func Open(ctx context.Context, s Settings) (Store, error) {
	driver := s.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(s.FSRoot)
	case DriverS3:
		return NewS3(ctx, s.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
