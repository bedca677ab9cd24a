package model

import "testing"

func TestLimitsEscalateByPlan(t *testing.T) {
	free := Limits(PlanFree)
	pro := Limits(PlanPro)
	ent := Limits(PlanEnterprise)

	if !(free.Requests < pro.Requests && pro.Requests < ent.Requests) {
		t.Fatalf("expected request limits to escalate free < pro < enterprise, got %+v %+v %+v", free, pro, ent)
	}
	if !(free.Leaderboards < pro.Leaderboards && pro.Leaderboards < ent.Leaderboards) {
		t.Fatalf("expected leaderboard limits to escalate free < pro < enterprise, got %+v %+v %+v", free, pro, ent)
	}
	if !(free.ApiKeys < pro.ApiKeys && pro.ApiKeys < ent.ApiKeys) {
		t.Fatalf("expected api key limits to escalate free < pro < enterprise, got %+v %+v %+v", free, pro, ent)
	}
}

func TestLimitsFallsBackToFreeForUnknownPlan(t *testing.T) {
	if Limits(PlanType("bogus")) != Limits(PlanFree) {
		t.Fatal("an unrecognized plan should be treated as the most conservative tier")
	}
}

func TestBucketEscalatesByPlan(t *testing.T) {
	free := Bucket(PlanFree)
	pro := Bucket(PlanPro)
	ent := Bucket(PlanEnterprise)

	if !(free.Capacity < pro.Capacity && pro.Capacity < ent.Capacity) {
		t.Fatalf("expected bucket capacity to escalate free < pro < enterprise, got %+v %+v %+v", free, pro, ent)
	}
	if !(free.RefillPerSec < pro.RefillPerSec && pro.RefillPerSec < ent.RefillPerSec) {
		t.Fatalf("expected refill rate to escalate free < pro < enterprise, got %+v %+v %+v", free, pro, ent)
	}
}

func TestPlanTypeValid(t *testing.T) {
	for _, p := range []PlanType{PlanFree, PlanPro, PlanEnterprise} {
		if !p.Valid() {
			t.Fatalf("expected %q to be a valid plan", p)
		}
	}
	if PlanType("startup").Valid() {
		t.Fatal("expected an unrecognized plan to be invalid")
	}
}
