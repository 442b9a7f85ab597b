package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/v2/shim"
	"google.golang.org/grpc/keepalive"

	"github.com/aub/blocktrace-chaincode/internal/chaincode"
	"github.com/aub/blocktrace-chaincode/internal/config"
	"github.com/aub/blocktrace-chaincode/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("Error starting BlockTrace chaincode: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadChaincode()
	if err != nil {
		return err
	}

	var metrics *telemetry.Metrics
	if cfg.MetricsAddress != "" {
		metrics = telemetry.New()
		go serveMetrics(cfg.MetricsAddress, metrics)
	}

	cc, err := chaincode.New(chaincode.NewContract(cfg.EventPrefix, metrics))
	if err != nil {
		return fmt.Errorf("error creating BlockTrace chaincode: %v", err)
	}

	if !cfg.ServerMode() {
		return cc.Start()
	}

	tlsProps, err := tlsProperties(cfg)
	if err != nil {
		return err
	}
	server := &shim.ChaincodeServer{
		CCID:     cfg.ID,
		Address:  cfg.ServerAddress,
		CC:       cc,
		TLSProps: tlsProps,
		KaOpts: &keepalive.ServerParameters{
			Time:    cfg.KeepaliveTime,
			Timeout: cfg.KeepaliveTimeout,
		},
	}
	log.Printf("BlockTrace chaincode service %s listening on %s", cfg.ID, cfg.ServerAddress)
	return server.Start()
}

func tlsProperties(cfg config.Chaincode) (shim.TLSProperties, error) {
	if cfg.TLSDisabled {
		return shim.TLSProperties{Disabled: true}, nil
	}

	key, err := os.ReadFile(cfg.TLSKeyFile)
	if err != nil {
		return shim.TLSProperties{}, fmt.Errorf("failed to read TLS key: %v", err)
	}
	cert, err := os.ReadFile(cfg.TLSCertFile)
	if err != nil {
		return shim.TLSProperties{}, fmt.Errorf("failed to read TLS certificate: %v", err)
	}
	props := shim.TLSProperties{Key: key, Cert: cert}
	if cfg.ClientCACertFile != "" {
		ca, err := os.ReadFile(cfg.ClientCACertFile)
		if err != nil {
			return shim.TLSProperties{}, fmt.Errorf("failed to read client CA certificate: %v", err)
		}
		props.ClientCACerts = ca
	}
	return props, nil
}

func serveMetrics(addr string, metrics *telemetry.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("Metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Metrics server stopped: %v", err)
	}
}
