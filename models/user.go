package models

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	BankId    string    `gorm:"index;size:64;not null" json:"bank_id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     *string   `gorm:"size:100;unique" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Password  string    `gorm:"size:255;not null" json:"password,omitempty"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	RoleId    int       `gorm:"not null;default:0" json:"role_id"`
	Role      UserRole  `gorm:"size:1;not null;default:'C'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Password string   `json:"password"`
	RoleId   int      `json:"role_id"`
	Role     UserRole `json:"role"`
}

type LoginInfo struct {
	Token          string              `json:"token"`
	AccessToken    string              `json:"access_token"`
	Name           string              `json:"name"`
	BankId         string              `json:"bank_id"`
	Role           string              `json:"role"`
	AllowedModules map[string][]string `json:"allowed_modules"`
}

/*
caches:
	User:$id
	Token:$token -> user id
*/

func (u User) GetBankId() string {
	return u.BankId
}

func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func (u *User) PrepareGive() {
	u.Password = ""
}

func sessionLifespan() time.Duration {
	hours, err := strconv.Atoi(os.Getenv("SESSION_HOUR_LIFESPAN"))
	if err != nil || hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

func sessionKey(token string) string {
	return "Token:" + token
}

// validate input for both create & update. (id = 0 for create)
func (input *NewUser) validate(ctx context.Context, bankId string, id int) error {
	input.Username = html.EscapeString(strings.TrimSpace(input.Username))
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Username == "" {
		return utils.NewValidationError("username", "is required")
	}
	if input.Role == "" {
		input.Role = UserRoleCustom
	}
	if input.Role == UserRoleCustom {
		if err := utils.ValidateResourceId[Role](ctx, bankId, input.RoleId); err != nil {
			return utils.NewValidationError("role_id", "role not found")
		}
	} else {
		input.RoleId = 0
	}
	if input.Phone != "" {
		phone, err := utils.NormalizePhoneNumber(input.Phone, utils.DefaultRegion())
		if err != nil {
			return utils.NewValidationError("phone", err.Error())
		}
		input.Phone = phone
	}

	// usernames and emails are unique across banks
	db := config.GetDB().WithContext(utils.SetSkipTenantScopeInContext(ctx, true))
	var count int64
	query := db.Model(&User{}).Where("username = ?", input.Username)
	if input.Email != "" {
		query = db.Model(&User{}).Where("username = ? OR email = ?", input.Username, input.Email)
	}
	if id > 0 {
		query = query.Where("id <> ?", id)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return utils.NewValidationError("username", "duplicate username or email")
	}
	return nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, bankId, 0); err != nil {
		return nil, err
	}
	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	var email *string
	if input.Email != "" {
		email = &input.Email
	}
	user := User{
		BankId:   bankId,
		Username: input.Username,
		Name:     strings.TrimSpace(input.Name),
		Email:    email,
		Phone:    input.Phone,
		Password: string(hashedPassword),
		IsActive: utils.NewTrue(),
		RoleId:   input.RoleId,
		Role:     input.Role,
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		logged := user
		logged.PrepareGive()
		return SaveHistoryCreate(tx, user.ID, "users", logged, "created user "+user.Username)
	})
	if err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

// UpdateUser changes profile and role; the password changes only when provided.
func UpdateUser(ctx context.Context, id int, input *NewUser) (*User, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	user, err := utils.FetchModel[User](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, bankId, id); err != nil {
		return nil, err
	}
	var email *string
	if input.Email != "" {
		email = &input.Email
	}
	changes := map[string]interface{}{
		"Username": input.Username,
		"Name":     strings.TrimSpace(input.Name),
		"Email":    email,
		"Phone":    input.Phone,
		"RoleId":   input.RoleId,
		"Role":     input.Role,
	}
	if input.Password != "" {
		hashedPassword, err := utils.HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		changes["Password"] = string(hashedPassword)
	}
	before := *user
	before.PrepareGive()

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(changes).Error; err != nil {
			return err
		}
		after := *user
		after.PrepareGive()
		return SaveHistoryUpdate(tx, id, "users", before, after, "updated user "+user.Username)
	})
	if err != nil {
		return nil, err
	}
	if err := user.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	user.PrepareGive()
	return user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	result, err := utils.FetchModel[User](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	result.PrepareGive()
	return result, nil
}

func GetUsers(ctx context.Context, search string) ([]*User, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	var results []*User
	dbCtx := config.GetDB().WithContext(ctx).Where("bank_id = ?", bankId)
	if !utils.IsBlank(search) {
		pattern := likePattern(search)
		dbCtx = dbCtx.Where("LOWER(username) LIKE ? OR LOWER(name) LIKE ?", pattern, pattern)
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	for _, u := range results {
		u.PrepareGive()
	}
	return results, nil
}

func ToggleActiveUser(ctx context.Context, id int, isActive bool) (*User, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if userId, _ := utils.GetUserIdFromContext(ctx); userId == id && !isActive {
		return nil, errors.New("cannot disable yourself")
	}
	result, err := ToggleActiveModel[User](ctx, bankId, id, isActive)
	if err != nil {
		return nil, err
	}
	result.PrepareGive()
	return result, nil
}

// GetSessionUser resolves the user behind a session, from redis or db.
func GetSessionUser(ctx context.Context, id int) (*User, error) {
	user, err := utils.RetrieveRedis[User](id)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	var result User
	if err := config.GetDB().WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := utils.StoreRedis[User](&result, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// LookupSession returns the user id stored for a session token.
func LookupSession(token string) (int, bool, error) {
	value, exists, err := config.GetRedisValue(sessionKey(token))
	if err != nil || !exists {
		return 0, false, err
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt session: %w", err)
	}
	return id, true, nil
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {
	var user User
	err := config.GetDB().WithContext(ctx).
		Where("username = ?", strings.TrimSpace(username)).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// check login credentials
	if err := utils.ComparePassword(user.Password, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, errors.New("user is disabled")
	}

	result := LoginInfo{
		Name:   user.Name,
		BankId: user.BankId,
	}
	if user.IsAdmin() {
		result.Role = "Admin"
		result.AllowedModules = map[string][]string{}
		for name, actions := range defaultModules {
			result.AllowedModules[name] = extractModuleActions(actions)
		}
	} else {
		var role Role
		if err := config.GetDB().WithContext(ctx).
			Where("bank_id = ?", user.BankId).
			First(&role, user.RoleId).Error; err != nil {
			return nil, notFound(err)
		}
		result.Role = role.Name
		allowed, err := AllowedModules(ctx, user.RoleId)
		if err != nil {
			return nil, err
		}
		result.AllowedModules = allowed
	}

	token := uuid.NewString()
	if err := config.SetRedisValue(sessionKey(token), strconv.Itoa(user.ID), sessionLifespan()); err != nil {
		return nil, err
	}
	accessToken, err := utils.JwtGenerate(utils.JwtCustomClaim{
		ID:       user.ID,
		BankId:   user.BankId,
		Username: user.Username,
		RoleId:   user.RoleId,
		IsAdmin:  user.IsAdmin(),
	})
	if err != nil {
		return nil, err
	}
	result.Token = token
	result.AccessToken = accessToken
	return &result, nil
}

// destroy current session
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	if err := config.RemoveRedisKey(sessionKey(token)); err != nil {
		return false, err
	}
	return true, nil
}

// SeedAdmin creates the first admin user of a bank. It is a no-op when the username exists.
func SeedAdmin(ctx context.Context, bankId string, username string, name string, password string) (*User, error) {
	var existing User
	err := config.GetDB().WithContext(ctx).Where("username = ?", username).Take(&existing).Error
	if err == nil {
		existing.PrepareGive()
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	ctx = utils.SystemContext(ctx, bankId)
	return CreateUser(ctx, &NewUser{
		Username: username,
		Name:     name,
		Password: password,
		Role:     UserRoleAdmin,
	})
}
