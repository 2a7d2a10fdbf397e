package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationPreferences stores which verbs a user wants emailed and
// whether web push is enabled. A user without a row gets every verb.
type NotificationPreferences struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"user_id"`
	EmailVerbs  datatypes.JSON `json:"email_verbs"`
	PushEnabled bool           `gorm:"not null" json:"push_enabled"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (p *NotificationPreferences) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

// Verbs decodes the opted-in email verbs
func (p *NotificationPreferences) Verbs() []string {
	var verbs []string
	if len(p.EmailVerbs) == 0 {
		return verbs
	}
	if err := json.Unmarshal(p.EmailVerbs, &verbs); err != nil {
		return nil
	}
	return verbs
}

// SetVerbs replaces the opted-in email verbs
func (p *NotificationPreferences) SetVerbs(verbs []string) error {
	if verbs == nil {
		verbs = []string{}
	}
	data, err := json.Marshal(verbs)
	if err != nil {
		return err
	}
	p.EmailVerbs = datatypes.JSON(data)
	return nil
}

// EmailEnabled reports whether verb is in the opted-in list
func (p *NotificationPreferences) EmailEnabled(verb string) bool {
	for _, v := range p.Verbs() {
		if v == verb {
			return true
		}
	}
	return false
}

// NotificationPreferencesChecker provides methods to check notification preferences.
// Delivery adapters consult it before sending.
type NotificationPreferencesChecker struct {
	db       *gorm.DB
	defaults []string
}

// NewNotificationPreferencesChecker creates a checker. defaults is the verb
// list stored for users who have never saved preferences.
func NewNotificationPreferencesChecker(db *gorm.DB, defaults []string) *NotificationPreferencesChecker {
	return &NotificationPreferencesChecker{db: db, defaults: defaults}
}

// GetOrCreate gets or creates notification preferences for a user
func (c *NotificationPreferencesChecker) GetOrCreate(userID string) (*NotificationPreferences, error) {
	var prefs NotificationPreferences

	err := c.db.Where("user_id = ?", userID).First(&prefs).Error
	if err != nil {
		// Not found, create with defaults (all enabled)
		prefs = NotificationPreferences{
			UserID:      userID,
			PushEnabled: true,
		}
		if err := prefs.SetVerbs(c.defaults); err != nil {
			return nil, err
		}

		if err := c.db.Create(&prefs).Error; err != nil {
			return nil, err
		}
	}

	return &prefs, nil
}

// EmailEnabled checks if email delivery of verb is enabled for a user
func (c *NotificationPreferencesChecker) EmailEnabled(userID, verb string) bool {
	var prefs NotificationPreferences
	if err := c.db.Where("user_id = ?", userID).First(&prefs).Error; err != nil {
		// No stored preferences: everything in the defaults is allowed
		for _, v := range c.defaults {
			if v == verb {
				return true
			}
		}
		return false
	}
	return prefs.EmailEnabled(verb)
}

// PushEnabled checks if web push is enabled for a user
func (c *NotificationPreferencesChecker) PushEnabled(userID string) bool {
	var prefs NotificationPreferences
	if err := c.db.Where("user_id = ?", userID).First(&prefs).Error; err != nil {
		return true
	}
	return prefs.PushEnabled
}

// Update stores a user's preferences, creating the row if needed
func (c *NotificationPreferencesChecker) Update(userID string, verbs []string, pushEnabled bool) (*NotificationPreferences, error) {
	prefs, err := c.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	if err := prefs.SetVerbs(verbs); err != nil {
		return nil, err
	}
	prefs.PushEnabled = pushEnabled
	err = c.db.Model(prefs).
		Select("email_verbs", "push_enabled", "updated_at").
		Updates(prefs).Error
	if err != nil {
		return nil, err
	}
	return prefs, nil
}
