package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/relwatch/pkg/infra/store"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Store backend names
const (
	StoreSQLite    = "sqlite"
	StoreFirestore = "firestore"
	StoreGCS       = "gcs"
	StoreMemory    = "memory"
)

// Store holds release store configuration
type Store struct {
	Backend string

	FirestoreProjectID  string
	FirestoreDatabaseID string
	FirestoreCollection string

	GCSBucket string
	GCSPrefix string

	CredentialsFile string
}

// Flags returns CLI flags for store configuration
func (c *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store-backend",
			Usage:       "Release store backend (sqlite, firestore, gcs, memory)",
			Value:       StoreSQLite,
			Destination: &c.Backend,
			Sources:     cli.EnvVars("RELWATCH_STORE_BACKEND"),
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Google Cloud project ID of Firestore",
			Destination: &c.FirestoreProjectID,
			Sources:     cli.EnvVars("RELWATCH_FIRESTORE_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Destination: &c.FirestoreDatabaseID,
			Sources:     cli.EnvVars("RELWATCH_FIRESTORE_DATABASE_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection of releases",
			Value:       "releases",
			Destination: &c.FirestoreCollection,
			Sources:     cli.EnvVars("RELWATCH_FIRESTORE_COLLECTION"),
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Usage:       "Cloud Storage bucket of releases",
			Destination: &c.GCSBucket,
			Sources:     cli.EnvVars("RELWATCH_GCS_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "gcs-prefix",
			Usage:       "Object name prefix in the Cloud Storage bucket",
			Value:       "releases/",
			Destination: &c.GCSPrefix,
			Sources:     cli.EnvVars("RELWATCH_GCS_PREFIX"),
		},
		&cli.StringFlag{
			Name:        "gcp-credentials",
			Usage:       "Path to a Google Cloud credentials file, default credentials are used when empty",
			Destination: &c.CredentialsFile,
			Sources:     cli.EnvVars("RELWATCH_GCP_CREDENTIALS"),
		},
	}
}

func (c *Store) clientOptions() []option.ClientOption {
	if c.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}
}

// New opens the configured backend. dbPath is used by the sqlite backend.
func (c *Store) New(ctx context.Context, dbPath string) (interfaces.ReleaseStore, error) {
	switch c.Backend {
	case StoreSQLite, "":
		db, err := store.NewSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		return db, nil

	case StoreMemory:
		return store.NewMemory(), nil

	case StoreFirestore:
		if c.FirestoreProjectID == "" {
			return nil, goerr.New("firestore-project-id is required for firestore backend")
		}
		db, err := store.NewFirestore(ctx, c.FirestoreProjectID, c.FirestoreDatabaseID, c.FirestoreCollection, c.clientOptions()...)
		if err != nil {
			return nil, err
		}
		return db, nil

	case StoreGCS:
		if c.GCSBucket == "" {
			return nil, goerr.New("gcs-bucket is required for gcs backend")
		}
		db, err := store.NewGCS(ctx, c.GCSBucket, c.GCSPrefix, c.clientOptions()...)
		if err != nil {
			return nil, err
		}
		return db, nil

	default:
		return nil, goerr.New("unsupported store backend", goerr.V("backend", c.Backend))
	}
}
