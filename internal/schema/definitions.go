package schema

import "github.com/joseph-ayodele/property-intake/constants"

func str(name string) Field  { return Field{Name: name, Type: TypeString} }
func num(name string) Field  { return Field{Name: name, Type: TypeNumber} }
func date(name string) Field { return Field{Name: name, Type: TypeDate} }

func required(f Field) Field {
	f.Required = true
	return f
}

func definitions() map[constants.DocumentType][]Field {
	return map[constants.DocumentType][]Field{
		constants.ClosingStatement:   closingStatementFields(),
		constants.FirstPaymentLetter: firstPaymentLetterFields(),
		constants.EscrowDisclosure:   escrowDisclosureFields(),
		constants.HomeOwnerInsurance: homeOwnerInsuranceFields(),
		constants.ExhibitA:           exhibitAFields(),
		constants.TaxBill:            taxBillFields(),
		constants.LeaseAgreement:     leaseAgreementFields(),
		constants.MortgageStatement:  mortgageStatementFields(),
	}
}

func closingStatementFields() []Field {
	return []Field{
		// owner
		str("owner_name"),
		str("owner_principal_address"),
		str("owner_phone_number"),
		str("owner_email_address"),
		str("company_name"),
		str("company_address"),
		str("company_phone_number"),
		str("company_email_address"),

		// property
		required(str("property_address")),
		str("city"),
		str("state"),
		str("zip_code"),
		str("property_address_legal_description"),
		str("property_type"),
		num("property_sqf"),
		num("construction_year"),
		str("property_owner"),
		str("property_type_2"),

		// title company
		str("title_company"),
		str("title_company_contact"),
		str("title_company_phone_number"),
		str("title_company_email_address"),

		num("purchase_price"),
		num("refinance_price"),
		date("purchase_refinance_closing_date"),

		// lender
		str("lender_mortgage_name"),
		str("lender_mortgage_address"),
		str("lender_mortgage_phone"),
		str("lender_mortgage_web_page"),
		str("lender_contact_primary_name"),
		str("lender_contact_primary_phone"),
		str("lender_contact_primary_fax"),
		str("lender_contact_primary_email"),
		str("lender_contact_secondary_name"),
		str("lender_contact_secondary_email"),
		str("lender_counsel_name"),
		str("lender_counsel_address"),
		str("lender_counsel_phone"),
		str("lender_counsel_fax"),
		str("lender_counsel_email"),
		str("mortgage_servicing_company"),
		str("mortgage_servicing_company_address"),
		str("mortgage_servicing_company_phone_number"),
		str("lender_web_page"),

		// loan
		required(str("loan_number")),
		num("loan_amount"),
		num("interest_rate"),
		num("term_years"),
		num("monthly_payment_principal_interest"),
		num("escrow_property_tax"),
		num("escrow_home_owner_insurance"),
		num("escrow_flood_insurance"),
		num("total_monthly_payment_piti"),
		num("home_owner_insurance_initial_escrow"),
		num("property_taxes_initial_escrow"),
		date("first_payment_date"),
		str("pre_payment_penalty"),

		// taxes
		num("year_1"),
		num("year_2"),
		num("year_3"),
		num("year_4"),
		num("year_5"),
		str("property_tax_county"),
		str("tax_authority"),
		str("tax_authority_web_page"),
		str("account_number"),
		num("assessed_value"),
		num("taxes_paid_last_year"),
		num("property_tax_percentage"),

		// insurance
		num("home_owner_insurance_initial_premium"),
		num("insurance_initial_premium"),
		str("insurance_company"),
		str("insurance_agent_name"),
		str("insurance_agent_contact"),
		str("insurance_agent_phone_number"),
		str("insurance_agent_email_address"),
		date("hoi_effective_date"),
		date("hoi_expiration_date"),
		str("policy_number"),
		num("coverage_a_dwelling"),
		num("coverage_b_other_structures"),
		num("coverage_c_personal_property"),
		num("coverage_d_fair_rental_value"),
		num("coverage_e_additional_living_expenses"),

		// lease
		str("initial_lease_tenant_name"),
		date("lease_effective_date"),
		date("lease_termination_date"),
		num("gross_monthly_income_rent"),
		num("property_management_percentage"),
		num("property_management_amount"),
		num("net_monthly_income"),

		// legacy names still read by the property mapping
		required(str("borrower_name")),
		str("lender_name"),
		date("closing_date"),
		num("down_payment"),
	}
}

func firstPaymentLetterFields() []Field {
	return []Field{
		required(str("loan_number")),
		required(date("first_payment_date")),
		num("monthly_payment"),
		num("principal_and_interest"),
		num("escrow_amount"),
		num("total_payment"),
	}
}

func escrowDisclosureFields() []Field {
	return []Field{
		required(str("loan_number")),
		num("property_taxes"),
		num("homeowner_insurance"),
		required(num("monthly_escrow")),
		num("initial_deposit"),
	}
}

func homeOwnerInsuranceFields() []Field {
	return []Field{
		required(str("policy_number")),
		required(date("effective_date")),
		date("expiration_date"),
		num("annual_premium"),
		num("insurance_initial_premium"),
		num("coverage_amount"),
		num("deductible"),

		str("insurance_company"),
		str("insurance_agent_name"),
		str("insurance_agent_contact"),
		str("insurance_agent_phone_number"),
		str("insurance_agent_email_address"),

		num("coverage_a_dwelling"),
		num("coverage_b_other_structures"),
		num("coverage_c_personal_property"),
		num("coverage_d_fair_rental_value"),
		num("coverage_e_additional_living_expenses"),

		str("property_address"),
		str("city"),
		str("state"),
		str("zip_code"),
		num("property_sqf"),
		num("construction_year"),

		str("owner_name"),
		str("borrower_name"),
		str("owner_principal_address"),
		str("owner_phone_number"),
		str("owner_email_address"),
	}
}

func exhibitAFields() []Field {
	return []Field{
		str("legal_description"),
		str("property_address"),
		str("parcel_number"),
		str("county"),
		str("owner_name"),
	}
}

func taxBillFields() []Field {
	return []Field{
		required(str("parcel_number")),
		str("account_number"),
		num("assessed_value"),
		required(num("tax_amount")),
		num("taxes"),
		num("annual_taxes"),
		num("taxes_paid_last_year"),
		date("due_date"),
		num("property_tax_percentage"),

		str("property_tax_county"),
		str("tax_county"),
		str("tax_authority"),
		str("tax_authority_web_page"),

		str("property_address"),
		str("city"),
		str("state"),
		str("zip_code"),
		num("property_sqf"),
		num("construction_year"),
		str("legal_description"),

		str("owner_name"),
		str("property_owner"),
		str("owner_principal_address"),
	}
}

func leaseAgreementFields() []Field {
	return []Field{
		required(str("tenant_name")),
		str("initial_lease_tenant_name"),
		str("landlord_name"),
		str("owner_name"),

		str("property_address"),
		str("city"),
		str("state"),
		str("zip_code"),
		num("property_sqf"),
		num("construction_year"),

		required(num("monthly_rent")),
		num("rent"),
		date("lease_start_date"),
		date("lease_effective_date"),
		date("lease_end_date"),
		date("lease_termination_date"),
		num("security_deposit"),

		num("gross_monthly_income_rent"),
		num("property_management_percentage"),
		num("property_management_amount"),
		num("net_monthly_income"),
	}
}

func mortgageStatementFields() []Field {
	return []Field{
		required(str("loan_number")),
		date("statement_date"),
		required(num("principal_balance")),
		num("loan_amount"),
		num("interest_rate"),
		num("loan_rate"),
		num("term_years"),
		num("monthly_payment"),
		num("monthly_payment_principal_interest"),
		date("next_payment_date"),
		date("first_payment_date"),

		num("escrow_property_tax"),
		num("escrow_home_owner_insurance"),
		num("total_monthly_payment_piti"),

		str("property_address"),
		str("city"),
		str("state"),
		str("zip_code"),

		str("borrower_name"),
		str("owner_name"),
		str("lender_name"),
		str("lender_mortgage_name"),
		str("lender_mortgage_address"),
		str("lender_mortgage_phone"),
		str("mortgage_servicing_company"),
	}
}
