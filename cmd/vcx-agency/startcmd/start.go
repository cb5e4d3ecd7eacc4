/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/component/storage/leveldb"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-vcx-go/pkg/agency"
	agencyhttp "github.com/hyperledger/aries-vcx-go/pkg/agency/http"
)

const (
	// agency host flag.
	agencyHostFlagName      = "host"
	agencyHostEnvKey        = "VCX_AGENCY_HOST"
	agencyHostFlagShorthand = "a"
	agencyHostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + agencyHostEnvKey

	// agency token flag.
	agencyTokenFlagName      = "api-token"
	agencyTokenEnvKey        = "VCX_AGENCY_API_TOKEN" // nolint:gosec
	agencyTokenFlagShorthand = "t"
	agencyTokenFlagUsage     = "Check for bearer token in the authorization header (optional)." +
		" Alternatively, this can be set with the following environment variable: " + agencyTokenEnvKey

	databaseTypeFlagName      = "database-type"
	databaseTypeEnvKey        = "VCX_AGENCY_DATABASE_TYPE"
	databaseTypeFlagShorthand = "q"
	databaseTypeFlagUsage     = "The type of database to hold messages in. " +
		"Supported options: mem, leveldb. " +
		" Alternatively, this can be set with the following environment variable: " + databaseTypeEnvKey

	databaseURLFlagName      = "database-url"
	databaseURLEnvKey        = "VCX_AGENCY_DATABASE_URL"
	databaseURLFlagShorthand = "v"
	databaseURLFlagUsage     = "The location of the database. Not needed if using memstore." +
		" For LevelDB, this is the directory the database is kept in. " +
		" Alternatively, this can be set with the following environment variable: " + databaseURLEnvKey

	databaseTimeoutFlagName  = "database-timeout"
	databaseTimeoutFlagUsage = "Total time in seconds to wait until the db is available before giving up." +
		" Default: " + databaseTimeoutDefault + " seconds." +
		" Alternatively, this can be set with the following environment variable: " + databaseTimeoutEnvKey
	databaseTimeoutEnvKey  = "VCX_AGENCY_DATABASE_TIMEOUT"
	databaseTimeoutDefault = "30"

	// log level.
	agencyLogLevelFlagName  = "log-level"
	agencyLogLevelEnvKey    = "VCX_AGENCY_LOG_LEVEL"
	agencyLogLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + agencyLogLevelEnvKey

	// log format.
	agencyLogFormatFlagName  = "log-format"
	agencyLogFormatEnvKey    = "VCX_AGENCY_LOG_FORMAT"
	agencyLogFormatFlagUsage = "Log format." +
		" Possible values [text] [json]. Defaults to the built-in format if not set." +
		" Alternatively, this can be set with the following environment variable: " + agencyLogFormatEnvKey

	agencyTLSCertFileFlagName      = "tls-cert-file"
	agencyTLSCertFileEnvKey        = "TLS_CERT_FILE"
	agencyTLSCertFileFlagShorthand = "c"
	agencyTLSCertFileFlagUsage     = "tls certificate file." +
		" Alternatively, this can be set with the following environment variable: " + agencyTLSCertFileEnvKey

	agencyTLSKeyFileFlagName      = "tls-key-file"
	agencyTLSKeyFileEnvKey        = "TLS_KEY_FILE"
	agencyTLSKeyFileFlagShorthand = "k"
	agencyTLSKeyFileFlagUsage     = "tls key file." +
		" Alternatively, this can be set with the following environment variable: " + agencyTLSKeyFileEnvKey

	databaseTypeMemOption     = "mem"
	databaseTypeLevelDBOption = "leveldb"

	agencyPathPrefix = "/agency"
)

var (
	errMissingHost = errors.New("host not provided")
	logger         = log.New("vcx/agency-server")
)

type agencyParameters struct {
	server                  server
	host, token             string
	tlsCertFile, tlsKeyFile string
	dbParam                 *dbParam
}

type dbParam struct {
	dbType  string
	url     string
	timeout uint64
}

// nolint:gochecknoglobals
var supportedStorageProviders = map[string]func(url string) (storage.Provider, error){
	databaseTypeMemOption: func(_ string) (storage.Provider, error) { // nolint:unparam
		return mem.NewProvider(), nil
	},
	databaseTypeLevelDBOption: func(path string) (storage.Provider, error) { // nolint:unparam
		return leveldb.NewProvider(path), nil
	},
}

type server interface {
	ListenAndServe(host string, router http.Handler, certFile, keyFile string) error
}

// HTTPServer represents an actual server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler, certFile, keyFile string) error {
	if certFile != "" && keyFile != "" {
		return http.ListenAndServeTLS(host, certFile, keyFile, router)
	}

	return http.ListenAndServe(host, router) // nolint:gosec
}

// Cmd returns the Cobra start command.
func Cmd(server server) (*cobra.Command, error) {
	startCmd := createStartCMD(server)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCMD(server server) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start an agency",
		Long:  `Start an agency that holds packed messages for their recipients`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logFormat, err := getUserSetVar(cmd, agencyLogFormatFlagName, agencyLogFormatEnvKey, true)
			if err != nil {
				return err
			}

			err = setLogFormat(logFormat, os.Stdout)
			if err != nil {
				return err
			}

			logLevel, err := getUserSetVar(cmd, agencyLogLevelFlagName, agencyLogLevelEnvKey, true)
			if err != nil {
				return err
			}

			err = setLogLevel(logLevel)
			if err != nil {
				return err
			}

			host, err := getUserSetVar(cmd, agencyHostFlagName, agencyHostEnvKey, false)
			if err != nil {
				return err
			}

			token, err := getUserSetVar(cmd, agencyTokenFlagName, agencyTokenEnvKey, true)
			if err != nil {
				return err
			}

			dbParam, err := getDBParam(cmd)
			if err != nil {
				return err
			}

			tlsCertFile, err := getUserSetVar(cmd, agencyTLSCertFileFlagName, agencyTLSCertFileEnvKey, true)
			if err != nil {
				return err
			}

			tlsKeyFile, err := getUserSetVar(cmd, agencyTLSKeyFileFlagName, agencyTLSKeyFileEnvKey, true)
			if err != nil {
				return err
			}

			parameters := &agencyParameters{
				server:      server,
				host:        host,
				token:       token,
				dbParam:     dbParam,
				tlsCertFile: tlsCertFile,
				tlsKeyFile:  tlsKeyFile,
			}

			return startAgency(parameters)
		},
	}
}

func getDBParam(cmd *cobra.Command) (*dbParam, error) {
	dbParam := &dbParam{}

	var err error

	dbParam.dbType, err = getUserSetVar(cmd, databaseTypeFlagName, databaseTypeEnvKey, false)
	if err != nil {
		return nil, err
	}

	dbParam.url, err = getUserSetVar(cmd, databaseURLFlagName, databaseURLEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbTimeout, err := getUserSetVar(cmd, databaseTimeoutFlagName, databaseTimeoutEnvKey, true)
	if err != nil {
		return nil, err
	}

	if dbTimeout == "" || dbTimeout == "0" {
		dbTimeout = databaseTimeoutDefault
	}

	t, err := strconv.Atoi(dbTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db timeout %s: %w", dbTimeout, err)
	}

	dbParam.timeout = uint64(t)

	return dbParam, nil
}

func createFlags(startCmd *cobra.Command) {
	// agency host flag
	startCmd.Flags().StringP(agencyHostFlagName, agencyHostFlagShorthand, "", agencyHostFlagUsage)

	// agency token flag
	startCmd.Flags().StringP(agencyTokenFlagName, agencyTokenFlagShorthand, "", agencyTokenFlagUsage)

	// db type
	startCmd.Flags().StringP(databaseTypeFlagName, databaseTypeFlagShorthand, "", databaseTypeFlagUsage)

	// db url
	startCmd.Flags().StringP(databaseURLFlagName, databaseURLFlagShorthand, "", databaseURLFlagUsage)

	// db timeout
	startCmd.Flags().StringP(databaseTimeoutFlagName, "", "", databaseTimeoutFlagUsage)

	// log level
	startCmd.Flags().StringP(agencyLogLevelFlagName, "", "", agencyLogLevelFlagUsage)

	// log format
	startCmd.Flags().StringP(agencyLogFormatFlagName, "", "", agencyLogFormatFlagUsage)

	// tls cert file
	startCmd.Flags().StringP(agencyTLSCertFileFlagName,
		agencyTLSCertFileFlagShorthand, "", agencyTLSCertFileFlagUsage)

	// tls key file
	startCmd.Flags().StringP(agencyTLSKeyFileFlagName,
		agencyTLSKeyFileFlagShorthand, "", agencyTLSKeyFileFlagUsage)
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}

func validateAuthorizationBearerToken(w http.ResponseWriter, r *http.Request, token string) bool {
	actHdr := r.Header.Get("Authorization")
	expHdr := "Bearer " + token

	if subtle.ConstantTimeCompare([]byte(actHdr), []byte(expHdr)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorised.\n")) // nolint:gosec,errcheck

		return false
	}

	return true
}

func authorizationMiddleware(token string) mux.MiddlewareFunc {
	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validateAuthorizationBearerToken(w, r, token) {
				next.ServeHTTP(w, r)
			}
		})
	}

	return middleware
}

func startAgency(parameters *agencyParameters) error {
	if parameters.host == "" {
		return errMissingHost
	}

	handler, err := createHandler(parameters)
	if err != nil {
		return err
	}

	logger.Infof("Starting agency on host [%s]", parameters.host)

	err = parameters.server.ListenAndServe(parameters.host, handler, parameters.tlsCertFile, parameters.tlsKeyFile)
	if err != nil {
		return fmt.Errorf("failed to start agency on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}

func createHandler(parameters *agencyParameters) (http.Handler, error) {
	store, err := createStoreProvider(parameters)
	if err != nil {
		return nil, err
	}

	mailbox, err := agency.NewMailbox(store)
	if err != nil {
		return nil, fmt.Errorf("failed to start agency on port [%s], failed to open mailbox : %w",
			parameters.host, err)
	}

	inbound, err := agencyhttp.NewInboundHandler(mailbox)
	if err != nil {
		return nil, fmt.Errorf("failed to start agency on port [%s], failed to create handler : %w",
			parameters.host, err)
	}

	router := mux.NewRouter()

	if parameters.token != "" {
		router.Use(authorizationMiddleware(parameters.token))
	}

	router.PathPrefix(agencyPathPrefix).Handler(inbound)

	return cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		},
	).Handler(router), nil
}

func createStoreProvider(parameters *agencyParameters) (storage.Provider, error) {
	provider, supported := supportedStorageProviders[parameters.dbParam.dbType]
	if !supported {
		return nil, fmt.Errorf("database type not set to a valid type." +
			" run start --help to see the available options")
	}

	var store storage.Provider

	err := backoff.RetryNotify(
		func() error {
			var openErr error
			store, openErr = provider(parameters.dbParam.url)
			return openErr
		},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), parameters.dbParam.timeout),
		func(retryErr error, t time.Duration) {
			logger.Warnf(
				"failed to connect to storage, will sleep for %s before trying again : %s\n",
				t, retryErr)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage at %s : %w", parameters.dbParam.url, err)
	}

	return store, nil
}
