package workflow

import (
	"errors"
	"testing"

	"github.com/example/agriroute/internal/models"
)

func TestFreightForwardSteps(t *testing.T) {
	if !Freight.CanTransition(models.StatusOpen, models.StatusAccepted, models.RoleProducer) {
		t.Error("producer must be able to accept an open freight")
	}
	if !Freight.CanTransition(models.StatusAccepted, models.StatusLoading, models.RoleDriver) {
		t.Error("driver must be able to start loading")
	}
	if !Freight.CanTransition(models.StatusDelivered, models.StatusCompleted, models.RoleProducer) {
		t.Error("producer confirms completion")
	}
}

func TestFreightSkipsAndBackwardMovesRejected(t *testing.T) {
	roles := []models.Role{models.RoleProducer, models.RoleDriver, models.RoleAdmin}
	for _, role := range roles {
		if Freight.CanTransition(models.StatusOpen, models.StatusInTransit, role) {
			t.Errorf("skip OPEN->IN_TRANSIT allowed for %s", role)
		}
		if Freight.CanTransition(models.StatusInTransit, models.StatusAccepted, role) {
			t.Errorf("backward move allowed for %s", role)
		}
	}
}

func TestFreightSeparationOfPowers(t *testing.T) {
	if Freight.CanTransition(models.StatusDelivered, models.StatusCompleted, models.RoleDriver) {
		t.Error("driver must not confirm completion")
	}
	if Freight.CanTransition(models.StatusOpen, models.StatusAccepted, models.RoleDriver) {
		t.Error("driver must not accept on the producer's behalf")
	}
	if Freight.CanTransition(models.StatusAccepted, models.StatusLoading, models.RoleProducer) {
		t.Error("producer does not drive the truck")
	}
}

func TestFreightCancellation(t *testing.T) {
	if !Freight.CanTransition(models.StatusOpen, models.StatusCancelled, models.RoleProducer) {
		t.Error("producer cancels an open freight")
	}
	if !Freight.CanTransition(models.StatusInTransit, models.StatusCancelled, models.RoleAdmin) {
		t.Error("admin cancels in transit")
	}
	if Freight.CanTransition(models.StatusInTransit, models.StatusCancelled, models.RoleDriver) {
		t.Error("driver must not abandon moving cargo")
	}
	if !Freight.CanTransition(models.StatusLoading, models.StatusCancelled, models.RoleDriver) {
		t.Error("driver may still back out while loading")
	}
	if Freight.CanTransition(models.StatusCompleted, models.StatusCancelled, models.RoleAdmin) {
		t.Error("terminal states cannot be cancelled")
	}
}

func TestAssertTransitionTypedError(t *testing.T) {
	err := Freight.AssertTransition(models.StatusOpen, models.StatusInTransit, models.RoleDriver)
	if err == nil {
		t.Fatal("expected error")
	}
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if te.From != models.StatusOpen || te.To != models.StatusInTransit || te.Role != models.RoleDriver {
		t.Fatalf("error fields %+v", te)
	}
	if Freight.AssertTransition(models.StatusOpen, models.StatusAccepted, models.RoleProducer) != nil {
		t.Fatal("legal transition must not error")
	}
}

func TestNextStatus(t *testing.T) {
	next, ok := Freight.NextStatus(models.StatusLoading)
	if !ok || next != models.StatusInTransit {
		t.Fatalf("got %q,%v", next, ok)
	}
	if _, ok := Freight.NextStatus(models.StatusCompleted); ok {
		t.Fatal("terminal state has no next status")
	}
}

func TestAllowedActions(t *testing.T) {
	acts := Freight.AllowedActions(models.StatusAccepted, models.RoleDriver)
	if len(acts) != 2 {
		t.Fatalf("driver at ACCEPTED: got %v", acts)
	}
	if acts[0].Verb != "start_loading" || acts[0].To != models.StatusLoading {
		t.Fatalf("forward action %+v", acts[0])
	}
	if acts[1].Verb != "cancel" || acts[1].To != models.StatusCancelled {
		t.Fatalf("cancel action %+v", acts[1])
	}
	if acts := Freight.AllowedActions(models.StatusDelivered, models.RoleDriver); len(acts) != 0 {
		t.Fatalf("driver at DELIVERED should have nothing, got %v", acts)
	}
}

func TestServiceRequestLadder(t *testing.T) {
	if !ServiceRequest.CanTransition(models.StatusOpen, models.StatusAccepted, models.RoleServiceProvider) {
		t.Error("provider accepts an open request")
	}
	if !ServiceRequest.CanTransition(models.StatusOnTheWay, models.StatusInProgress, models.RoleServiceProvider) {
		t.Error("provider starts work on arrival")
	}
	if !ServiceRequest.CanTransition(models.StatusInProgress, models.StatusCompleted, models.RoleProducer) {
		t.Error("requester confirms completion")
	}
	if ServiceRequest.CanTransition(models.StatusInProgress, models.StatusCompleted, models.RoleServiceProvider) {
		t.Error("provider must not self-complete")
	}
	if ServiceRequest.CanTransition(models.StatusOpen, models.StatusInProgress, models.RoleAdmin) {
		t.Error("skips rejected even for admin")
	}
	if ServiceRequest.CanTransition(models.StatusInProgress, models.StatusCancelled, models.RoleServiceProvider) {
		t.Error("provider cannot cancel once work started")
	}
	if !ServiceRequest.CanTransition(models.StatusInProgress, models.StatusCancelled, models.RoleProducer) {
		t.Error("requester may cancel in-progress work")
	}
}
