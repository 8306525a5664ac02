package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

var resolverNow = time.Date(2024, 1, 1, 9, 0, 0, 0, testLoc)

func TestPackageResolver_ByID(t *testing.T) {
	env := newTestEnv(false, resolverNow)
	pkg := env.seedPackage("Quý (24 buổi)", 24, intPtr(90), 1500000, true)

	got, err := env.resolver.Resolve(context.Background(), PackageRef{PackageID: pkg.PackageID})
	if err != nil {
		t.Fatalf("Resolve 应成功: %v", err)
	}
	if got.PackageID == nil || *got.PackageID != pkg.PackageID {
		t.Errorf("期望 PackageID=%s，实际=%v", pkg.PackageID, got.PackageID)
	}
	if got.TotalSessions != 24 || got.DurationDays == nil || *got.DurationDays != 90 {
		t.Errorf("期望 24 节 / 90 天，实际 %d / %v", got.TotalSessions, got.DurationDays)
	}
	if got.Defaulted {
		t.Error("按 ID 解析不应标记为默认套餐")
	}
}

func TestPackageResolver_UnknownIDFailsEvenWithDefault(t *testing.T) {
	env := newTestEnv(true, resolverNow)

	_, err := env.resolver.Resolve(context.Background(), PackageRef{PackageID: "missing", PackageName: "Tháng (8 buổi)"})
	if !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("期望 ErrPackageNotFound，实际: %v", err)
	}
}

func TestPackageResolver_ByNameCaseInsensitive(t *testing.T) {
	env := newTestEnv(false, resolverNow)
	pkg := env.seedPackage("Hip Hop 12", 12, intPtr(45), 900000, true)

	got, err := env.resolver.Resolve(context.Background(), PackageRef{PackageName: "  hip hop 12 "})
	if err != nil {
		t.Fatalf("Resolve 应成功: %v", err)
	}
	if got.PackageID == nil || *got.PackageID != pkg.PackageID {
		t.Errorf("期望匹配套餐 %s", pkg.PackageID)
	}
	if got.TotalSessions != 12 {
		t.Errorf("期望 12 节，实际 %d", got.TotalSessions)
	}
}

func TestPackageResolver_InactiveNameFallsThroughToLegacy(t *testing.T) {
	env := newTestEnv(false, resolverNow)
	env.seedPackage("Quý (24 buổi)", 30, intPtr(120), 1, false)

	got, err := env.resolver.Resolve(context.Background(), PackageRef{PackageName: "Quý (24 buổi)"})
	if err != nil {
		t.Fatalf("Resolve 应成功: %v", err)
	}
	if got.PackageID != nil {
		t.Error("停售套餐不应被匹配")
	}
	if got.TotalSessions != 24 || *got.DurationDays != 90 {
		t.Errorf("期望历史套餐 24 节 / 90 天，实际 %d / %v", got.TotalSessions, got.DurationDays)
	}
}

func TestPackageResolver_LegacyUnlimited(t *testing.T) {
	env := newTestEnv(false, resolverNow)

	got, err := env.resolver.Resolve(context.Background(), PackageRef{PackageName: "10 buổi"})
	if err != nil {
		t.Fatalf("Resolve 应成功: %v", err)
	}
	if got.TotalSessions != 10 || got.DurationDays != nil {
		t.Errorf("期望 10 节不限期，实际 %d / %v", got.TotalSessions, got.DurationDays)
	}
}

func TestPackageResolver_DefaultPackage(t *testing.T) {
	env := newTestEnv(true, resolverNow)

	got, err := env.resolver.Resolve(context.Background(), PackageRef{PackageName: "không rõ"})
	if err != nil {
		t.Fatalf("Resolve 应成功: %v", err)
	}
	if !got.Defaulted {
		t.Error("期望标记为默认套餐")
	}
	if got.PackageName != DefaultPackageName || got.TotalSessions != 8 || *got.DurationDays != 30 {
		t.Errorf("期望默认套餐 8 节 / 30 天，实际 %s %d / %v", got.PackageName, got.TotalSessions, got.DurationDays)
	}
}

func TestPackageResolver_UnresolvedWithoutDefault(t *testing.T) {
	env := newTestEnv(false, resolverNow)

	_, err := env.resolver.Resolve(context.Background(), PackageRef{})
	if !errors.Is(err, ErrPackageUnresolved) {
		t.Errorf("期望 ErrPackageUnresolved，实际: %v", err)
	}
}
