package services

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/aksjeradar/aksjeradar/internal/models"
)

// UserService defines the interface for user-related operations
type UserService interface {
	GetUserByID(id uint) (models.User, error)
	GetUserByUsername(username string) (models.User, error)
	CreateUser(user models.User, password string) (models.User, error)
	CountUsers() (int64, error)
}

// userService implements the UserService interface
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB) UserService {
	return &userService{
		db: db,
	}
}

// GetUserByID returns a user by primary key
func (s *userService) GetUserByID(id uint) (models.User, error) {
	var user models.User
	result := s.db.Select("id, username, email, role").First(&user, id) // Exclude password field
	return user, result.Error
}

// GetUserByUsername returns a user by username
func (s *userService) GetUserByUsername(username string) (models.User, error) {
	var user models.User
	result := s.db.Where("username = ?", username).First(&user)
	return user, result.Error
}

// CreateUser hashes password and stores the user
func (s *userService) CreateUser(user models.User, password string) (models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	user.HashedPassword = string(hashed)
	result := s.db.Create(&user)
	return user, result.Error
}

// CountUsers returns the number of registered users
func (s *userService) CountUsers() (int64, error) {
	var n int64
	err := s.db.Model(&models.User{}).Count(&n).Error
	return n, err
}
