package contract

// FieldSet keys of the contract wizard, grouped by owning step.
const (
	// customer
	SelectedCustomerID    = "selectedCustomerId"
	CustomerName          = "customerName"
	CustomerPhone         = "customerPhone"
	CustomerIDNumber      = "customerIdNumber"
	CustomerLicenseNumber = "customerLicenseNumber"

	// vehicle
	SelectedVehicleID  = "selectedVehicleId"
	VehiclePlateNumber = "vehiclePlateNumber"
	VehicleMake        = "vehicleMake"
	VehicleModel       = "vehicleModel"
	VehicleYear        = "vehicleYear"
	DailyRentalRate    = "dailyRentalRate"
	PermittedDailyKm   = "permittedDailyKm"
	ExtraKmRate        = "extraKmRate"
	CurrentMileage     = "currentMileage"

	// details
	DurationType   = "durationType"
	DurationInDays = "durationInDays"
	TotalFees      = "totalFees"
	StartDate      = "startDate"
	EndDate        = "endDate"
	PickupLocation = "pickupLocation"
	ReturnLocation = "returnLocation"
	Notes          = "notes"

	// pricing
	RentalDays              = "rentalDays"
	InsuranceEnabled        = "insuranceEnabled"
	InsuranceDailyRate      = "insuranceDailyRate"
	AdditionalDriverEnabled = "additionalDriverEnabled"
	AdditionalDriverFee     = "additionalDriverFee"
	TotalAmount             = "totalAmount"
	DepositAmount           = "depositAmount"
	PaymentMethod           = "paymentMethod"

	// inspection
	SelectedInspectorID = "selectedInspectorId"
	InspectorName       = "inspectorName"
	MileageOut          = "mileageOut"
	FuelLevel           = "fuelLevel"
	InspectionNotes     = "inspectionNotes"
	Status              = "status"
)

// Duration modes. Exactly one of durationInDays and totalFees applies.
const (
	ModeDuration = "duration"
	ModeFees     = "fees"
)

var (
	paymentMethods = []string{"cash", "card", "transfer"}
	fuelLevels     = []string{"empty", "quarter", "half", "three_quarters", "full"}
	statuses       = []string{"draft", "active", "completed", "cancelled"}
)
