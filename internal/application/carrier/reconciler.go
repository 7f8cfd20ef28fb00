package carrier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/storelink/backend/internal/domain/storefront"
)

// State classifies the remote carrier-service registration at the start of a
// reconciler run.
type State string

const (
	// StateAbsent means no registration with the expected name exists.
	StateAbsent State = "ABSENT"
	// StateCorrect means the registration exists with the canonical callback
	// URL and is active.
	StateCorrect State = "CORRECT"
	// StateStaleURL means the registration exists under the expected name
	// but its callback URL differs (or it is inactive).
	StateStaleURL State = "STALE_URL"
	// StateForeign means a registration with a matching name exists but this
	// credential cannot mutate it, e.g. it belongs to a different app
	// installation. Only discovered by a failed mutation.
	StateForeign State = "FOREIGN"
)

// Report describes what one reconciler run observed and did.
type Report struct {
	// Initial is the state classified from the fresh listing.
	Initial State
	// Final is the state after the run; a successful run always ends
	// CORRECT.
	Final State
	// RegistrationID is the ID of the registration that now carries the
	// canonical callback URL.
	RegistrationID int64
	// RegistrationName is that registration's name; differs from the
	// canonical name only when the disambiguated-create fallback fired.
	RegistrationName string
	// OrphanID is the ID of a non-functional registration left in place by
	// the fallback path, requiring manual cleanup. Zero when none.
	OrphanID int64
	// Actions is the ordered list of remote mutations attempted.
	Actions []string
}

// Reconciler drives the remote carrier-service registration toward exactly
// one correctly-configured entry per shop. The platform offers no atomic
// upsert-by-name, so the reconciler is an eventually-convergent procedure:
// list, classify, act. Every run re-derives state from a fresh listing, so
// re-running after a crash at any point is safe, and running twice from a
// converged state is a no-op.
type Reconciler struct {
	client      storefront.Client
	serviceName string
	callbackURL string
	logger      *zap.Logger
	now         func() time.Time
}

// NewReconciler creates a Reconciler. serviceName is the canonical
// registration name; callbackURL is the currently-configured canonical rate
// callback endpoint.
func NewReconciler(client storefront.Client, serviceName, callbackURL string, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		client:      client,
		serviceName: serviceName,
		callbackURL: callbackURL,
		logger:      logger,
		now:         time.Now,
	}
}

// Reconcile runs the state machine once for a shop. On a nil error return,
// at least one active registration with the canonical callback URL exists,
// possibly under a disambiguated name when the matching registration could
// not be mutated.
func (r *Reconciler) Reconcile(ctx context.Context, conn *storefront.ShopConnection) (*Report, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}

	services, err := r.client.ListCarrierServices(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("listing carrier services: %w", err)
	}

	report := &Report{}

	// A registration already carrying the canonical URL satisfies the
	// invariant even under a disambiguated name: a prior run's fallback
	// converged. Without this check, a FOREIGN registration would spawn a
	// new orphan on every run.
	if satisfied := findSatisfying(services, r.serviceName, r.callbackURL); satisfied != nil {
		report.Initial = StateCorrect
		report.Final = StateCorrect
		report.RegistrationID = satisfied.ID
		report.RegistrationName = satisfied.Name
		r.logger.Debug("carrier service already correct",
			zap.String("shop_domain", conn.ShopDomain),
			zap.Int64("registration_id", satisfied.ID))
		return report, nil
	}

	if matched := findByName(services, r.serviceName); matched != nil {
		report.Initial = StateStaleURL
		if err := r.repair(ctx, conn, matched, report); err != nil {
			return report, err
		}
		return report, nil
	}

	report.Initial = StateAbsent
	if err := r.create(ctx, conn, report); err != nil {
		return report, err
	}
	return report, nil
}

// create issues the create mutation for the canonical registration. A remote
// "already exists" answer is treated as convergence, not failure: a
// concurrent run or an earlier partial run got there first.
func (r *Reconciler) create(ctx context.Context, conn *storefront.ShopConnection, report *Report) error {
	report.Actions = append(report.Actions, "create")
	created, err := r.client.CreateCarrierService(ctx, conn, r.canonicalInput(r.serviceName))
	if err != nil {
		if storefront.IsCode(err, storefront.ErrorCodeAlreadyExists) {
			r.logger.Info("carrier service already configured remotely, treating as correct",
				zap.String("shop_domain", conn.ShopDomain))
			report.Final = StateCorrect
			report.RegistrationName = r.serviceName
			return nil
		}
		return fmt.Errorf("creating carrier service: %w", err)
	}

	report.Final = StateCorrect
	report.RegistrationID = created.ID
	report.RegistrationName = created.Name
	r.logger.Info("carrier service created",
		zap.String("shop_domain", conn.ShopDomain),
		zap.Int64("registration_id", created.ID))
	return nil
}

// repair drives a STALE_URL registration toward correctness: update in
// place, then delete-and-recreate, then the disambiguated-create fallback.
// Destructive operations are never retried once the credential proves unable
// to mutate the registration.
func (r *Reconciler) repair(ctx context.Context, conn *storefront.ShopConnection, stale *storefront.CarrierService, report *Report) error {
	report.Actions = append(report.Actions, "update")
	updated, err := r.client.UpdateCarrierService(ctx, conn, stale.ID, r.canonicalInput(r.serviceName))
	if err == nil {
		report.Final = StateCorrect
		report.RegistrationID = updated.ID
		report.RegistrationName = updated.Name
		r.logger.Info("carrier service callback URL updated",
			zap.String("shop_domain", conn.ShopDomain),
			zap.Int64("registration_id", updated.ID),
			zap.String("callback_url", r.callbackURL))
		return nil
	}

	switch storefront.CodeOf(err) {
	case storefront.ErrorCodeNotFound, storefront.ErrorCodeInvalid:
		// The registration cannot be updated; try removing it and starting
		// over from ABSENT.
		report.Actions = append(report.Actions, "delete")
		if delErr := r.client.DeleteCarrierService(ctx, conn, stale.ID); delErr != nil {
			r.logger.Warn("stale carrier service cannot be deleted, falling back to disambiguated create",
				zap.String("shop_domain", conn.ShopDomain),
				zap.Int64("registration_id", stale.ID),
				zap.Error(delErr))
			return r.createDisambiguated(ctx, conn, stale, report)
		}
		return r.create(ctx, conn, report)
	case storefront.ErrorCodeForbidden:
		return r.createDisambiguated(ctx, conn, stale, report)
	default:
		return fmt.Errorf("updating carrier service %d: %w", stale.ID, err)
	}
}

// createDisambiguated registers a fresh carrier service under a
// timestamp-suffixed name, leaving the unmutable registration in place. This
// guarantees forward progress (a working registration exists) at the
// explicit, logged cost of an orphan that needs manual cleanup.
func (r *Reconciler) createDisambiguated(ctx context.Context, conn *storefront.ShopConnection, foreign *storefront.CarrierService, report *Report) error {
	report.Initial = StateForeign
	name := fmt.Sprintf("%s-%d", r.serviceName, r.now().Unix())

	report.Actions = append(report.Actions, "create-disambiguated")
	created, err := r.client.CreateCarrierService(ctx, conn, r.canonicalInput(name))
	if err != nil {
		return fmt.Errorf("creating disambiguated carrier service: %w", err)
	}

	report.Final = StateCorrect
	report.RegistrationID = created.ID
	report.RegistrationName = created.Name
	report.OrphanID = foreign.ID
	r.logger.Warn("registered disambiguated carrier service; orphaned registration needs manual cleanup",
		zap.String("shop_domain", conn.ShopDomain),
		zap.Int64("registration_id", created.ID),
		zap.String("registration_name", created.Name),
		zap.Int64("orphan_id", foreign.ID))
	return nil
}

// canonicalInput builds the desired registration under the given name.
func (r *Reconciler) canonicalInput(name string) *storefront.CarrierServiceInput {
	return &storefront.CarrierServiceInput{
		Name:              name,
		CallbackURL:       r.callbackURL,
		Active:            true,
		SupportsDiscovery: true,
	}
}

// findByName returns the registration with the exact canonical name, or nil.
// Registrations that merely share the name prefix (disambiguated survivors
// of earlier fallback runs) are not claimed: the reconciler only mutates
// what it can positively identify as its own.
func findByName(services []storefront.CarrierService, name string) *storefront.CarrierService {
	for i := range services {
		if services[i].Name == name {
			return &services[i]
		}
	}
	return nil
}

// findSatisfying returns an active registration whose name carries the
// canonical prefix and whose callback URL already equals the canonical URL.
func findSatisfying(services []storefront.CarrierService, namePrefix, callbackURL string) *storefront.CarrierService {
	for i := range services {
		s := &services[i]
		if strings.HasPrefix(s.Name, namePrefix) && s.CallbackURL == callbackURL && s.Active {
			return s
		}
	}
	return nil
}
