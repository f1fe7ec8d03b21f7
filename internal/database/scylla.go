package database

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gocql/gocql"
)

// --- Configuration ScyllaDB ---
type ScyllaConfig struct {
	Hosts      []string
	Keyspace   string
	Username   string
	Password   string
	SSLEnabled bool
	CACertPath string
	Timeout    time.Duration
	NumConns   int
}

// ConnectScylla ouvre une session sur le keyspace ; celui-ci est créé au besoin.
func ConnectScylla(cfg ScyllaConfig) (*gocql.Session, error) {
	if cfg.Keyspace == "" {
		return nil, fmt.Errorf("keyspace ScyllaDB non configuré")
	}

	// Le keyspace doit exister avant d'ouvrir la session dessus
	admin, err := newScyllaCluster(cfg, "")
	if err != nil {
		return nil, err
	}
	bootstrap, err := admin.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur connexion ScyllaDB: %w", err)
	}
	err = bootstrap.Query(fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, cfg.Keyspace)).Exec()
	bootstrap.Close()
	if err != nil {
		return nil, fmt.Errorf("création keyspace %s: %w", cfg.Keyspace, err)
	}

	cluster, err := newScyllaCluster(cfg, cfg.Keyspace)
	if err != nil {
		return nil, err
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %w", cfg.Keyspace, err)
	}

	log.Printf("✅ Session ScyllaDB pour keyspace '%s' (utilisateur: %s)", cfg.Keyspace, cfg.Username)
	return session, nil
}

func newScyllaCluster(cfg ScyllaConfig, keyspace string) (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = cfg.Timeout
	if cluster.Timeout == 0 {
		cluster.Timeout = 5 * time.Second
	}
	if cfg.NumConns > 0 {
		cluster.NumConns = cfg.NumConns
	}
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second

	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	if cfg.SSLEnabled {
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.CACertPath != "" {
			caCert, err := os.ReadFile(cfg.CACertPath)
			if err != nil {
				return nil, fmt.Errorf("impossible de lire le certificat CA: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caCert) {
				return nil, fmt.Errorf("impossible de parser le certificat CA")
			}
			tlsCfg.RootCAs = pool
		}
		cluster.SslOpts = &gocql.SslOptions{Config: tlsCfg, EnableHostVerification: true}
	}

	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster, nil
}
