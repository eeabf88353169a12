package cmd

import (
	"context"

	"github.com/foomo/keel"
	"github.com/foomo/keel/healthz"
	"github.com/foomo/keel/net/http/middleware"
	"github.com/foomo/keel/service"
	"github.com/foomo/reportserver/pkg/dispatch"
	"github.com/foomo/reportserver/pkg/handler"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewHTTPCommand() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Start http server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svr := keel.NewServer(
				keel.WithHTTPPrometheusService(servicePrometheusEnabledFlag(v)),
				keel.WithHTTPHealthzService(serviceHealthzEnabledFlag(v)),
				keel.WithPrometheusMeter(servicePrometheusEnabledFlag(v)),
				keel.WithGracefulPeriod(gracefulPeriodFlag(v)),
				keel.WithOTLPGRPCTracer(otelEnabledFlag(v)),
				keel.WithHTTPPProfService(servicePProfEnabledFlag(v)),
			)

			l := svr.Logger()

			s, err := createStorage(cmd.Context(), v, l)
			if err != nil {
				return errors.Wrap(err, "failed to create storage")
			}

			deploymentHealthzerFn := healthz.NewHealthzerFn(func(ctx context.Context) error {
				return errors.Wrap(s.Ping(ctx), "deployment root not reachable")
			})
			svr.AddStartupHealthzers(deploymentHealthzerFn)
			svr.AddReadinessHealthzers(deploymentHealthzerFn)

			svr.AddClosers(func(ctx context.Context) error {
				return s.Close()
			})

			mux := handler.NewServeMux(basePathFlag(v),
				handler.NewReport(l.Named("inst.report"), s,
					handler.ReportWithKey(reportKeyFlag(v)),
				),
				handler.NewForward(l.Named("inst.forward"),
					dispatch.NewStaticProvider(l.Named("inst.dispatch"), s),
					handler.ForwardWithTarget(forwardTargetFlag(v)),
				),
			)

			svr.AddServices(
				service.NewHTTP(l.Named("svc.http"), "http", addressFlag(v), mux,
					middleware.Telemetry(),
					middleware.Logger(),
					middleware.GZip(middleware.GZipWithLevel(gzipLevelFlag(v))),
					middleware.Recover(),
				),
			)

			svr.Run()
			return nil
		},
	}

	flags := cmd.Flags()
	addAddressFlag(flags, v)
	addBasePathFlag(flags, v)
	addDeploymentRootFlag(flags, v)
	addReportKeyFlag(flags, v)
	addForwardTargetFlag(flags, v)
	addGracefulPeriodFlag(flags, v)
	addOtelEnabledFlag(flags, v)
	addServiceHealthzEnabledFlag(flags, v)
	addServicePrometheusEnabledFlag(flags, v)
	addServicePProfEnabledFlag(flags, v)
	addStorageTypeFlag(flags, v)
	addStorageBlobBucketFlag(flags, v)
	addStorageBlobPrefixFlag(flags, v)
	addGzipLevelFlag(flags, v)

	return cmd
}
