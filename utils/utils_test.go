package utils_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJwtRoundTrip(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	token, err := utils.JwtGenerate(utils.JwtCustomClaim{ID: 4, BankId: "BANK01", Username: "thida", RoleId: 2})
	require.NoError(t, err)

	claim, err := utils.JwtValidate(token)
	require.NoError(t, err)
	assert.Equal(t, 4, claim.ID)
	assert.Equal(t, "BANK01", claim.BankId)
	assert.Equal(t, "thida", claim.Subject)
	assert.False(t, claim.IsAdmin)

	t.Setenv("API_SECRET", "rotated")
	_, err = utils.JwtValidate(token)
	require.Error(t, err)
}

func TestJwtGenerateRequiresSecret(t *testing.T) {
	t.Setenv("API_SECRET", "")
	_, err := utils.JwtGenerate(utils.JwtCustomClaim{ID: 1})
	require.Error(t, err)
}

func TestNormalizePhoneNumber(t *testing.T) {
	cases := []struct {
		input  string
		region string
		want   string
		ok     bool
	}{
		{"8123 4567", "SG", "+6581234567", true},
		{"+65 8123 4567", "MM", "+6581234567", true},
		{"09 2123 456", "MM", "+9592123456", true},
		{"8123 456", "SG", "", false},
		{"2123 4567", "SG", "", false},
		{"not a phone", "SG", "", false},
		{"12", "MM", "", false},
	}
	for _, tc := range cases {
		got, err := utils.NormalizePhoneNumber(tc.input, tc.region)
		if tc.ok {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("%s: expected %s, got %s", tc.input, tc.want, got)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%s: expected an error, got %s", tc.input, got)
		}
	}
}

func TestCodes(t *testing.T) {
	assert.Equal(t, "GOLD", utils.NormalizeCode("  gold "))
	assert.True(t, utils.IsValidCode("GOLD_PLUS1"))
	assert.False(t, utils.IsValidCode("GOLD PLUS"))
	assert.False(t, utils.IsValidCode(""))

	joined := utils.JoinCodes([]string{"silver", "GOLD", " gold ", ""})
	assert.Equal(t, "GOLD;SILVER", joined)
	if diff := cmp.Diff([]string{"GOLD", "SILVER"}, utils.SplitCodes(joined+"; ;gold")); diff != "" {
		t.Fatalf("SplitCodes (-want +got):\n%s", diff)
	}
	assert.True(t, utils.ContainsCode(joined, "silver"))
	assert.False(t, utils.ContainsCode(joined, "BRONZE"))
}

func TestPercentage(t *testing.T) {
	assert.True(t, utils.Percentage(1, 3).Equal(decimal.RequireFromString("33.33")))
	assert.True(t, utils.Percentage(0, 0).IsZero())
	assert.True(t, utils.Percentage(5, 5).Equal(decimal.NewFromInt(100)))
}

func TestReferenceNoIsUnique(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		ref := utils.NewReferenceNo("PL")
		require.True(t, strings.HasPrefix(ref, "PL"))
		require.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageHelpers(t *testing.T) {
	data := pngBytes(t, 640, 320)
	contentType, err := utils.DetectImageType(data)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	thumb, err := utils.MakeThumbnail(data)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, utils.ThumbnailWidth, cfg.Width)
	assert.Equal(t, 128, cfg.Height)

	var validationErr *utils.ValidationError
	_, err = utils.DetectImageType([]byte("GIF89a not really"))
	require.ErrorAs(t, err, &validationErr)
	_, err = utils.DetectImageType(nil)
	require.ErrorAs(t, err, &validationErr)
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORAGE_PROVIDER", "local")
	t.Setenv("LOCAL_STORAGE_DIR", dir)
	t.Setenv("LOCAL_STORAGE_BASE_URL", "http://files.local/")

	store, err := utils.NewObjectStorage("")
	require.NoError(t, err)
	url, err := store.Put(context.Background(), "../benefits/1/a.png", "image/png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "http://files.local/benefits/1/a.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "benefits", "1", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestHashPassword(t *testing.T) {
	t.Setenv("BCRYPT_COST", "4")
	hashed, err := utils.HashPassword("correct horse")
	require.NoError(t, err)
	require.NoError(t, utils.ComparePassword(string(hashed), "correct horse"))
	require.Error(t, utils.ComparePassword(string(hashed), "wrong horse"))

	_, err = utils.HashPassword("short")
	var validationErr *utils.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestContextHelpers(t *testing.T) {
	ctx := utils.SessionUser(context.Background(), "BANK01", 12, "thida", "Thida Win", 3)

	bankId, _ := utils.GetBankIdFromContext(ctx)
	userId, _ := utils.GetUserIdFromContext(ctx)
	username, _ := utils.GetUsernameFromContext(ctx)
	name, _ := utils.GetUserNameFromContext(ctx)
	roleId, _ := utils.GetRoleIdFromContext(ctx)
	assert.Equal(t, "BANK01", bankId)
	assert.Equal(t, 12, userId)
	assert.Equal(t, "thida", username)
	assert.Equal(t, "Thida Win", name)
	assert.Equal(t, 3, roleId)

	_, ok := utils.GetSkipTenantScopeFromContext(ctx)
	assert.False(t, ok)
	skip, ok := utils.GetSkipTenantScopeFromContext(utils.SetSkipTenantScopeInContext(ctx, true))
	assert.True(t, ok)
	assert.True(t, skip)

	admin, ok := utils.GetIsAdminFromContext(utils.SetIsAdminInContext(ctx, true))
	assert.True(t, ok)
	assert.True(t, admin)

	system := utils.SystemContext(context.Background(), "BANK02")
	name, _ = utils.GetUserNameFromContext(system)
	assert.Equal(t, "System", name)
}
