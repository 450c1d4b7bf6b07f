package models

import (
	"context"
	"errors"
	"time"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/utils"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID       int      `gorm:"primary_key" json:"id"`
	Name     string   `gorm:"size:100;not null" json:"name" binding:"required"`
	Email    string   `gorm:"size:100;not null;unique" json:"email" binding:"required,email"`
	Phone    string   `gorm:"size:20" json:"phone"`
	Password string   `gorm:"size:255;not null" json:"-"`
	Role     UserRole `gorm:"type:enum('A', 'C');default:C" json:"role"`
	IsActive *bool    `gorm:"not null;default:true" json:"is_active"`
	// Password-recovery state. ResetToken holds the SHA-256 digest of the
	// token mailed to the user, never the token itself.
	ResetToken       *string    `gorm:"size:64;index" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginInfo struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

/*
caches:
	User:$email
*/

func (user User) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("User:" + user.Email)
}

func (result *User) PrepareGive() {
	result.Password = ""
}

// session lifespan for the redis record backing a login token
const sessionLifespan = 72 * time.Hour

func Signup(ctx context.Context, input NewUser) (*User, error) {
	db := config.GetDB()

	if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); input.Phone != "" && err != nil {
		return nil, errors.New("invalid phone number")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	active := true
	user := User{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Password: string(hashed),
		Role:     UserRoleCustomer,
		IsActive: &active,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, errors.New("email is already registered")
	}

	user.PrepareGive()
	return &user, nil
}

func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {
	db := config.GetDB()
	var result LoginInfo

	user := User{}

	// get User info
	exists, err := config.GetRedisObject("User:"+email, &user)
	if err != nil {
		return &result, err
	}
	if !exists {
		err = db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Take(&user).Error
		if err != nil {
			return &result, errors.New("invalid email or password")
		}
	}

	// check login credentials
	err = utils.ComparePassword(user.Password, password)
	if err != nil && err == bcrypt.ErrMismatchedHashAndPassword {
		return &result, errors.New("invalid email or password")
	}

	if user.IsActive != nil && !*user.IsActive {
		return &result, errors.New("user is disabled")
	}

	role := "Customer"
	if user.Role == UserRoleAdmin {
		role = "Admin"
	}

	// A session is a signed JWT that is also recorded in redis so logout can
	// revoke it before expiry.
	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return &result, err
	}
	if err := config.SetRedisValue("Token:"+token, user.Email, sessionLifespan); err != nil {
		return &result, err
	}
	if err := config.AddRedisSet("Tokens:"+user.Email, token); err != nil {
		return &result, err
	}
	config.SetRedisObject("User:"+user.Email, user, sessionLifespan)

	result.Token = token
	result.Name = user.Name
	result.Email = user.Email
	result.Role = role
	return &result, nil
}

// destroy current session
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	if err := config.RemoveRedisKey("Token:" + token); err != nil {
		return false, err
	}
	email, ok := utils.GetUserEmailFromContext(ctx)
	if !ok || email == "" {
		return false, errors.New("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+email, token); err != nil {
		return false, err
	}
	return true, nil
}

// reset tokens outlive a single request but not a coffee break
const resetTokenLifespan = time.Hour

// CreatePasswordResetToken stores a hashed one-hour reset token on the user
// and returns the raw token for the email link. Returns ErrorRecordNotFound
// for unknown emails; the handler answers success either way so the endpoint
// cannot be used to enumerate accounts.
func CreatePasswordResetToken(ctx context.Context, email string) (string, error) {
	db := config.GetDB()

	var user User
	if err := db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Take(&user).Error; err != nil {
		return "", utils.ErrorRecordNotFound
	}

	raw, hashed, err := utils.GenerateResetToken()
	if err != nil {
		return "", err
	}
	expiry := time.Now().Add(resetTokenLifespan)

	if err := db.WithContext(ctx).Model(&User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"reset_token":        hashed,
		"reset_token_expiry": expiry,
	}).Error; err != nil {
		return "", err
	}
	return raw, nil
}

// ResetPassword redeems a reset token: the email, the token digest and an
// unexpired window must all match one user. On success the password is
// replaced, the token is cleared and every live session is revoked.
func ResetPassword(ctx context.Context, email string, rawToken string, newPassword string) error {
	db := config.GetDB()
	hashed := utils.HashResetToken(rawToken)

	var user User
	err := db.WithContext(ctx).Model(&User{}).
		Where("email = ? AND reset_token = ? AND reset_token_expiry > ?", email, hashed, time.Now()).
		Take(&user).Error
	if err != nil {
		return errors.New("invalid or expired token")
	}

	passwordHash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := db.WithContext(ctx).Model(&User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"password":           string(passwordHash),
		"reset_token":        nil,
		"reset_token_expiry": nil,
	}).Error; err != nil {
		return err
	}

	revokeSessions(user.Email)
	user.RemoveInstanceRedis()
	return nil
}

var ErrUndeliveredOrders = errors.New("cannot deactivate account with undelivered orders")

// DeactivateAccount is the self-service variant of SetUserActive. A customer
// with a PAID order that has not been DELIVERED yet cannot leave; the goods
// are still in flight.
func DeactivateAccount(ctx context.Context, userID int) error {
	db := config.GetDB()

	var count int64
	err := db.WithContext(ctx).Model(&Order{}).
		Where("user_id = ? AND status = ? AND fulfillment_status <> ?",
			userID, OrderStatusPaid, FulfillmentStatusDelivered).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrUndeliveredOrders
	}

	var user User
	if err := db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return utils.ErrorRecordNotFound
	}
	if err := db.WithContext(ctx).Model(&user).Update("is_active", false).Error; err != nil {
		return err
	}

	revokeSessions(user.Email)
	user.RemoveInstanceRedis()
	return nil
}

// revokeSessions deletes every live token of a user from redis. Best-effort:
// with redis down the JWTs simply age out.
func revokeSessions(email string) {
	tokens, err := config.GetRedisSetMembers("Tokens:" + email)
	if err != nil {
		return
	}
	for _, token := range tokens {
		config.RemoveRedisKey("Token:" + token)
	}
	config.RemoveRedisKey("Tokens:" + email)
}

func GetUsers(ctx context.Context, limit int, offset int) ([]User, error) {
	db := config.GetDB()
	var users []User
	if limit <= 0 || limit > 100 {
		limit = config.SearchLimit
	}
	if err := db.WithContext(ctx).Model(&User{}).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PrepareGive()
	}
	return users, nil
}

func SetUserActive(ctx context.Context, userID int, active bool) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := db.WithContext(ctx).Model(&user).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	user.RemoveInstanceRedis()
	user.PrepareGive()
	return &user, nil
}
